package sahara_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/sahara"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func encodeHello() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sahara.CmdHello))
	binary.LittleEndian.PutUint32(buf[4:8], 8)
	return buf
}

func TestHelloRespondsWithFullBody(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	m.QueueReply(encodeHello())

	if err := sahara.Hello(context.Background(), m, time.Second); err != nil {
		t.Fatal(err)
	}
	if len(m.Sent) != 1 {
		t.Fatalf("expected 1 frame sent, got %d", len(m.Sent))
	}
	if len(m.Sent[0]) != 40 {
		t.Fatalf("expected HelloResponse frame of 40 bytes (8 header + 32 body), got %d", len(m.Sent[0]))
	}
}

func TestHelloRejectsWrongCommand(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sahara.CmdDone))
	binary.LittleEndian.PutUint32(buf[4:8], 8)
	m.QueueReply(buf)

	if err := sahara.Hello(context.Background(), m, time.Second); err == nil {
		t.Fatal("expected protocol error for non-Hello first frame")
	}
}
