package gpt_test

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/gpt"
)

func buildHeader(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 92)
	binary.LittleEndian.PutUint64(buf[0:8], gpt.Signature)
	binary.LittleEndian.PutUint32(buf[8:12], 1)
	binary.LittleEndian.PutUint32(buf[12:16], 92)
	binary.LittleEndian.PutUint64(buf[40:48], 34)
	binary.LittleEndian.PutUint64(buf[48:56], 100)
	binary.LittleEndian.PutUint64(buf[72:80], 2)
	binary.LittleEndian.PutUint32(buf[80:84], 128)
	binary.LittleEndian.PutUint32(buf[84:88], 128)

	crc := crc32.ChecksumIEEE(buf[:92])
	binary.LittleEndian.PutUint32(buf[16:20], crc)
	return buf
}

func TestParseHeaderValidCrc(t *testing.T) {
	buf := buildHeader(t)
	h, err := gpt.ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.NumPartitionEntries != 128 {
		t.Fatalf("unexpected entry count: %d", h.NumPartitionEntries)
	}
}

func TestParseHeaderBadCrc(t *testing.T) {
	buf := buildHeader(t)
	buf[16] ^= 0xFF
	if _, err := gpt.ParseHeader(buf); err == nil {
		t.Fatal("expected CRC mismatch error")
	}
}

func TestParseHeaderBadSignature(t *testing.T) {
	buf := buildHeader(t)
	buf[0] = 0
	if _, err := gpt.ParseHeader(buf); err == nil {
		t.Fatal("expected bad signature error")
	}
}

func buildEntry(typeGuidByte byte, name string, startLba, endLba uint64) []byte {
	rec := make([]byte, 128)
	rec[0] = typeGuidByte
	binary.LittleEndian.PutUint64(rec[32:40], startLba)
	binary.LittleEndian.PutUint64(rec[40:48], endLba)
	for i, r := range name {
		binary.LittleEndian.PutUint16(rec[56+2*i:58+2*i], uint16(r))
	}
	return rec
}

func TestParseEntriesBootName(t *testing.T) {
	rec := buildEntry(0x01, "boot", 64, 127)
	parts := gpt.ParseEntries(rec, 1, 128, 512)
	if len(parts) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(parts))
	}
	if parts[0].Name != "boot" {
		t.Fatalf("expected name boot, got %q", parts[0].Name)
	}
	if parts[0].SizeInBytes != 64*512 {
		t.Fatalf("expected size 32768, got %d", parts[0].SizeInBytes)
	}
}

func TestParseEntriesSkipsEmpty(t *testing.T) {
	rec := make([]byte, 128) // all-zero type GUID
	parts := gpt.ParseEntries(rec, 1, 128, 512)
	if len(parts) != 0 {
		t.Fatalf("expected empty slot to be skipped, got %v", parts)
	}
}

func TestParseEntriesDropsInvertedLba(t *testing.T) {
	rec := buildEntry(0x01, "bad", 200, 100)
	parts := gpt.ParseEntries(rec, 1, 128, 512)
	if len(parts) != 0 {
		t.Fatalf("expected inverted LBA entry to be dropped, got %v", parts)
	}
}

func TestParseEntriesSurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE, surrogate pair 0xD83D 0xDE00
	rec := make([]byte, 128)
	rec[0] = 0x01
	binary.LittleEndian.PutUint64(rec[32:40], 0)
	binary.LittleEndian.PutUint64(rec[40:48], 0)
	binary.LittleEndian.PutUint16(rec[56:58], 0xD83D)
	binary.LittleEndian.PutUint16(rec[58:60], 0xDE00)

	parts := gpt.ParseEntries(rec, 1, 128, 512)
	if len(parts) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(parts))
	}
	want := string([]rune{0x1F600})
	if parts[0].Name != want {
		t.Fatalf("expected surrogate pair decoded to %q, got %q", want, parts[0].Name)
	}
}
