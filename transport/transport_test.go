package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func TestMockSendReceive(t *testing.T) {
	m := transport.NewMock()
	if err := m.Open(0); err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	n, err := m.Send(context.Background(), []byte("hello"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes sent, got %d", n)
	}
	if len(m.Sent) != 1 || string(m.Sent[0]) != "hello" {
		t.Fatalf("unexpected sent log: %v", m.Sent)
	}

	m.QueueReply([]byte("world"))
	buf := make([]byte, 5)
	n, err = m.Receive(context.Background(), buf, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("expected world, got %q", buf[:n])
	}
}

func TestMockReceiveTimeout(t *testing.T) {
	m := transport.NewMock()
	m.Open(0)
	defer m.Close()

	buf := make([]byte, 4)
	_, err := m.Receive(context.Background(), buf, time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error with no queued reply")
	}
}
