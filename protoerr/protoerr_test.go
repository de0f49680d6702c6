package protoerr_test

import (
	"errors"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
)

func TestIsMatchesByKind(t *testing.T) {
	base := errors.New("short read")
	err := protoerr.Wrap(protoerr.KindTransport, "transport.Send", base)

	if !errors.Is(err, protoerr.New(protoerr.KindTransport, "")) {
		t.Fatal("expected errors.Is to match on Kind regardless of Op/Cause")
	}
	if errors.Is(err, protoerr.New(protoerr.KindProtocol, "")) {
		t.Fatal("expected errors.Is to reject a different Kind")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	base := errors.New("eof")
	err := protoerr.Wrap(protoerr.KindIo, "boot.Load", base)
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestSentinelsClassify(t *testing.T) {
	if !errors.Is(protoerr.ErrNotIdentified, protoerr.New(protoerr.KindNotIdentified, "")) {
		t.Fatal("expected ErrNotIdentified to carry KindNotIdentified")
	}
	if !errors.Is(protoerr.ErrCancelled, protoerr.New(protoerr.KindCancelled, "")) {
		t.Fatal("expected ErrCancelled to carry KindCancelled")
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	err := protoerr.Wrap(protoerr.KindFormat, "gpt.ParseHeader", errors.New("bad crc32"))
	got := err.Error()
	if got == "" {
		t.Fatal("expected non-empty error message")
	}
	want := "gpt.ParseHeader: format error: bad crc32"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
