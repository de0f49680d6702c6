// Package transport provides the opaque bulk byte pipe the protocol layer
// rides on: open, close, send and receive, each bounded by a caller-supplied
// timeout. The only concrete implementation here wraps a caller-provided
// file descriptor (the Android USB-OTG model); tests use the in-memory mock
// in mock.go.
package transport

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
)

// ChunkSize is the bulk transfer chunk boundary. Payloads larger than this
// are split into ChunkSize writes/reads; a short chunk is surfaced to the
// caller rather than retried.
const ChunkSize = 16 * 1024

// Endpoint addresses of the bulk pair the protocol layer assumes.
const (
	EndpointOut = 0x01
	EndpointIn  = 0x81
)

// Transport is the capability set the protocol engine requires of the USB
// bulk pipe. A negative transferred count is never returned; a failure is
// reported as an error. A timeout is also reported as a KindTransport error
// whose message says it timed out; after any other failure the caller must
// treat the session as torn down.
type Transport interface {
	Open(fd int) error
	Close() error
	Send(ctx context.Context, data []byte, timeout time.Duration) (int, error)
	Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error)
}

// FdTransport drives a bulk pipe over an already-opened file descriptor
// (e.g. one handed over by an Android USB-OTG accessory intent). It does
// not itself enumerate or claim the USB interface; that is the caller's
// responsibility before Open.
type FdTransport struct {
	fd   int
	open bool
}

// NewFdTransport returns an unopened FdTransport.
func NewFdTransport() *FdTransport {
	return &FdTransport{fd: -1}
}

// Open adopts fd as the transport's bulk pipe.
func (t *FdTransport) Open(fd int) error {
	if fd < 0 {
		return protoerr.New(protoerr.KindTransport, "transport.Open: invalid fd")
	}
	t.fd = fd
	t.open = true
	return nil
}

// Close releases the transport. The underlying fd is left to the caller to
// close, since FdTransport did not open it.
func (t *FdTransport) Close() error {
	t.open = false
	return nil
}

// Send writes data in ChunkSize-bounded pieces, stopping at the first short
// or failed write. It returns the total bytes written and, when a chunk
// fails or times out, a *protoerr.Error (KindCancelled if ctx is done).
func (t *FdTransport) Send(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	if !t.open {
		return 0, protoerr.New(protoerr.KindTransport, "transport.Send: not open")
	}
	total := 0
	for total < len(data) {
		end := total + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		want := end - total
		n, err := t.transferChunk(ctx, data[total:end], timeout, true)
		total += n
		if err != nil {
			return total, err
		}
		if n < want {
			// short chunk: surface without retrying
			break
		}
	}
	return total, nil
}

// Receive reads into buf in ChunkSize-bounded pieces, stopping at the first
// short or failed read.
func (t *FdTransport) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	if !t.open {
		return 0, protoerr.New(protoerr.KindTransport, "transport.Receive: not open")
	}
	total := 0
	for total < len(buf) {
		end := total + ChunkSize
		if end > len(buf) {
			end = len(buf)
		}
		want := end - total
		n, err := t.transferChunk(ctx, buf[total:end], timeout, false)
		total += n
		if err != nil {
			return total, err
		}
		if n < want {
			break
		}
	}
	return total, nil
}

// transferChunk performs one bounded-timeout read or write on a background
// goroutine, mirroring the select/time.After pattern used for device ioctls:
// the syscall keeps running if the timeout fires first, but the caller gets
// control back at the deadline.
func (t *FdTransport) transferChunk(ctx context.Context, buf []byte, timeout time.Duration, write bool) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		var n int
		var err error
		if write {
			n, err = unix.Write(t.fd, buf)
		} else {
			n, err = unix.Read(t.fd, buf)
		}
		done <- result{n, err}
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case r := <-done:
		if r.err != nil {
			return r.n, protoerr.Wrap(protoerr.KindTransport, opName(write), r.err)
		}
		return r.n, nil
	case <-timeoutCh:
		return 0, protoerr.New(protoerr.KindTransport, fmt.Sprintf("%s timed out after %v", opName(write), timeout))
	case <-ctx.Done():
		return 0, protoerr.Wrap(protoerr.KindCancelled, opName(write), ctx.Err())
	}
}

func opName(write bool) string {
	if write {
		return "transport.Send"
	}
	return "transport.Receive"
}
