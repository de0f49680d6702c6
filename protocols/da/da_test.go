package da_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/da"
)

func buildContainer(count uint32, sections int) []byte {
	buf := make([]byte, 12+sections*24)
	binary.LittleEndian.PutUint32(buf[0:4], da.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], 1)
	binary.LittleEndian.PutUint32(buf[8:12], count)
	for i := 0; i < sections; i++ {
		off := 12 + i*24
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(i))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(i*100))
	}
	return buf
}

func TestValidate(t *testing.T) {
	if !da.Validate(buildContainer(2, 2)) {
		t.Fatal("expected valid DA container")
	}
	if da.Validate([]byte{0, 0, 0, 0}) {
		t.Fatal("expected invalid magic to fail")
	}
}

func TestParseSectionsFull(t *testing.T) {
	buf := buildContainer(2, 2)
	secs := da.ParseSections(buf)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[1].DaIndex != 1 || secs[1].DaOffset != 100 {
		t.Fatalf("unexpected section: %+v", secs[1])
	}
}

func TestParseSectionsTruncated(t *testing.T) {
	buf := buildContainer(5, 2) // claims 5 sections but only 2 fit
	secs := da.ParseSections(buf)
	if len(secs) != 2 {
		t.Fatalf("expected early stop at 2 sections, got %d", len(secs))
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	buf := buildContainer(2, 2)
	h, ok := da.ParseHeader(buf)
	if !ok {
		t.Fatal("expected header to parse")
	}
	re := da.EncodeHeader(h)
	if !bytes.Equal(re, buf[:12]) {
		t.Fatalf("header round-trip mismatch: %x vs %x", re, buf[:12])
	}
}
