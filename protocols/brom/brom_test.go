package brom_test

import (
	"context"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/brom"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func TestHandshakeSuccess(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	for _, echo := range []byte{0x5E, 0x5D, 0x5C, 0x5B} {
		m.QueueReply([]byte{echo})
	}

	ok, err := brom.Handshake(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected handshake success with correct complement echoes")
	}
	if len(m.Sent) != 4 {
		t.Fatalf("expected 4 bytes sent, got %d", len(m.Sent))
	}
}

func TestHandshakeFailsOnBadEcho(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	m.QueueReply([]byte{0x5E}) // correct first echo
	m.QueueReply([]byte{0x00}) // wrong second echo

	ok, err := brom.Handshake(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected handshake failure on second echo mismatch")
	}
	if len(m.Sent) != 2 {
		t.Fatalf("expected handshake to stop after 2 bytes sent, got %d", len(m.Sent))
	}
}
