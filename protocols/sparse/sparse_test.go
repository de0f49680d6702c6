package sparse_test

import (
	"encoding/binary"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/sparse"
)

func TestIsSparse(t *testing.T) {
	magic := []byte{0x3A, 0xFF, 0x26, 0xED}
	if !sparse.IsSparse(magic) {
		t.Fatal("expected sparse magic to be recognized")
	}
	notMagic := []byte{0x45, 0x46, 0x49, 0x20} // "EFI "
	if sparse.IsSparse(notMagic) {
		t.Fatal("expected non-sparse magic to be rejected")
	}
}

func TestGetUnsparseSize(t *testing.T) {
	buf := make([]byte, 28)
	binary.LittleEndian.PutUint32(buf[0:4], sparse.Magic)
	binary.LittleEndian.PutUint32(buf[12:16], 4096)
	binary.LittleEndian.PutUint32(buf[16:20], 10)

	if got := sparse.GetUnsparseSize(buf); got != 40960 {
		t.Fatalf("expected 40960, got %d", got)
	}
}

func TestGetUnsparseSizeNotSparse(t *testing.T) {
	buf := make([]byte, 28)
	if got := sparse.GetUnsparseSize(buf); got != 0 {
		t.Fatalf("expected 0 for non-sparse buffer, got %d", got)
	}
}
