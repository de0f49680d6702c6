package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/engine"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func TestIdentifyPrefersBrom(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	for _, echo := range []byte{0x5E, 0x5D, 0x5C, 0x5B} {
		m.QueueReply([]byte{echo})
	}

	s := engine.NewSession(m, "emmc")
	if err := s.Identify(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Kind() != engine.KindMTK {
		t.Fatalf("expected MTK after successful BROM handshake, got %v", s.Kind())
	}
}

func TestIdentifyFailsWithoutEcho(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	// No replies queued at all: BROM handshake times out, Sahara hello
	// receive also times out with no queued frame.
	s := engine.NewSession(m, "emmc")
	err := s.Identify(context.Background())
	if err == nil {
		t.Fatal("expected identify to fail with no device responses")
	}
	if s.Kind() != engine.KindUnidentified {
		t.Fatalf("expected unidentified, got %v", s.Kind())
	}
}

func TestUnidentifiedRejectsPartitionOps(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	s := engine.NewSession(m, "emmc")

	_, err := s.DumpPartition(context.Background(), "boot")
	var pe *protoerr.Error
	if !errors.As(err, &pe) || pe.Kind != protoerr.KindNotIdentified {
		t.Fatalf("expected NotIdentified error, got %v", err)
	}
	if len(m.Sent) != 0 {
		t.Fatalf("expected no bytes transmitted for unidentified session, got %d sends", len(m.Sent))
	}
}
