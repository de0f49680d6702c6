package edl_test

import (
	"context"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/edl"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func TestFirehoseHandshakeAck(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	m.QueueReply([]byte(`<data><response value="ACK" /></data>`))

	mgr := edl.New(m, "emmc")
	if err := mgr.FirehoseHandshake(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestFirehoseHandshakeNak(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	m.QueueReply([]byte(`<data><response value="NAK" /></data>`))

	mgr := edl.New(m, "emmc")
	if err := mgr.FirehoseHandshake(context.Background()); err == nil {
		t.Fatal("expected error on NAK response")
	}
}

func TestErasePartitionAck(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	m.QueueReply([]byte(`<data><response value="ack" /></data>`))

	mgr := edl.New(m, "emmc")
	if err := mgr.ErasePartition(context.Background(), "userdata"); err != nil {
		t.Fatal(err)
	}
	if len(m.Sent) != 1 {
		t.Fatalf("expected 1 XML command sent, got %d", len(m.Sent))
	}
}
