package transport

import (
	"context"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
)

// Mock is an in-memory Transport for protocol state-machine tests. Writes
// append to Sent; reads drain a queue of canned responses enqueued with
// QueueReply. A reply of nil simulates a timeout.
type Mock struct {
	Sent    [][]byte
	replies [][]byte
	opened  bool
}

// NewMock returns an unopened Mock transport.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Open(fd int) error {
	m.opened = true
	return nil
}

func (m *Mock) Close() error {
	m.opened = false
	return nil
}

// QueueReply enqueues bytes to be returned by the next Receive call. A nil
// slice simulates a read that times out.
func (m *Mock) QueueReply(data []byte) {
	m.replies = append(m.replies, data)
}

func (m *Mock) Send(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	if !m.opened {
		return 0, protoerr.New(protoerr.KindTransport, "mock.Send: not open")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Sent = append(m.Sent, cp)
	return len(data), nil
}

func (m *Mock) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	if !m.opened {
		return 0, protoerr.New(protoerr.KindTransport, "mock.Receive: not open")
	}
	if len(m.replies) == 0 {
		return 0, protoerr.New(protoerr.KindTransport, "mock.Receive: timed out (no reply queued)")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	if reply == nil {
		return 0, protoerr.New(protoerr.KindTransport, "mock.Receive: timed out")
	}
	n := copy(buf, reply)
	return n, nil
}
