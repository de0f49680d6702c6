// Package gpt parses the UEFI GUID Partition Table: the primary header at
// LBA 1 and its partition entry array. Both the header and the entry-array
// CRC32s are validated before any entry is exposed, and UTF-16LE partition
// names are decoded into proper UTF-8, including supra-BMP surrogate pairs
// that a naive two-byte-only decoder would otherwise drop.
package gpt

import (
	"encoding/binary"
	"hash/crc32"
	"log"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
)

// Signature is "EFI PART" read as a little-endian uint64.
const Signature uint64 = 0x5452415020494645

const (
	headerSize      = 92 // on-disk fixed portion Header occupies
	entryNameCodeUnits = 36
)

// Header is the primary (or backup) GPT header.
type Header struct {
	Signature             uint64
	Revision              uint32
	HeaderSize            uint32
	HeaderCrc32           uint32
	Reserved              uint32
	CurrentLba            uint64
	BackupLba             uint64
	FirstUsableLba        uint64
	LastUsableLba         uint64
	DiskGuid              [16]byte
	PartitionEntryLba     uint64
	NumPartitionEntries   uint32
	PartitionEntrySize    uint32
	PartitionEntriesCrc32 uint32
}

// Entry is one raw 128-byte (by default) partition entry record.
type Entry struct {
	PartitionTypeGuid  [16]byte
	UniquePartitionGuid [16]byte
	StartingLba        uint64
	EndingLba          uint64
	Attributes         uint64
	PartitionName      [36]uint16
}

// PartitionInfo is the decoded, user-facing view of a non-empty entry.
type PartitionInfo struct {
	Name        string
	StartLba    uint64
	EndLba      uint64
	SizeInBytes uint64
}

// ParseHeader decodes buf as a Header and validates its signature and
// header CRC32. The CRC32 is recomputed over the on-disk header with the
// HeaderCrc32 field zeroed, per the UEFI spec; it is NOT validated by the
// upstream C++ parser this package was ported from, which is a format bug
// this implementation fixes per the spec's CRC invariant.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < headerSize {
		return nil, protoerr.New(protoerr.KindFormat, "gpt.ParseHeader: buffer too short")
	}

	h := &Header{
		Signature:           binary.LittleEndian.Uint64(buf[0:8]),
		Revision:            binary.LittleEndian.Uint32(buf[8:12]),
		HeaderSize:          binary.LittleEndian.Uint32(buf[12:16]),
		HeaderCrc32:         binary.LittleEndian.Uint32(buf[16:20]),
		Reserved:            binary.LittleEndian.Uint32(buf[20:24]),
		CurrentLba:          binary.LittleEndian.Uint64(buf[24:32]),
		BackupLba:           binary.LittleEndian.Uint64(buf[32:40]),
		FirstUsableLba:      binary.LittleEndian.Uint64(buf[40:48]),
		LastUsableLba:       binary.LittleEndian.Uint64(buf[48:56]),
		PartitionEntryLba:   binary.LittleEndian.Uint64(buf[72:80]),
		NumPartitionEntries: binary.LittleEndian.Uint32(buf[80:84]),
		PartitionEntrySize:  binary.LittleEndian.Uint32(buf[84:88]),
		PartitionEntriesCrc32: binary.LittleEndian.Uint32(buf[88:92]),
	}
	copy(h.DiskGuid[:], buf[56:72])

	if h.Signature != Signature {
		return nil, protoerr.New(protoerr.KindFormat, "gpt.ParseHeader: bad signature")
	}

	zeroed := make([]byte, headerSize)
	copy(zeroed, buf[:headerSize])
	zeroed[16], zeroed[17], zeroed[18], zeroed[19] = 0, 0, 0, 0
	if crc32.ChecksumIEEE(zeroed) != h.HeaderCrc32 {
		return nil, protoerr.New(protoerr.KindFormat, "gpt.ParseHeader: bad header CRC32")
	}

	return h, nil
}

// ValidateEntriesCrc32 recomputes the CRC32 of the raw partition-entry array
// (NumPartitionEntries * PartitionEntrySize bytes starting at entries) and
// compares it against h.PartitionEntriesCrc32.
func (h *Header) ValidateEntriesCrc32(entries []byte) error {
	want := int(h.NumPartitionEntries) * int(h.PartitionEntrySize)
	if len(entries) < want {
		return protoerr.New(protoerr.KindFormat, "gpt.ValidateEntriesCrc32: buffer too short")
	}
	if crc32.ChecksumIEEE(entries[:want]) != h.PartitionEntriesCrc32 {
		return protoerr.New(protoerr.KindFormat, "gpt.ValidateEntriesCrc32: bad entries CRC32")
	}
	return nil
}

// ParseEntries walks count records of entrySize bytes starting at buf[0],
// decoding each into a PartitionInfo. Entries whose type GUID is all-zero
// are empty slots and are skipped. sectorSize is used to compute the byte
// size of each partition; pass 0 to use the default of 512.
func ParseEntries(buf []byte, count, entrySize uint32, sectorSize uint64) []PartitionInfo {
	if sectorSize == 0 {
		sectorSize = 512
	}

	var out []PartitionInfo
	for i := uint32(0); i < count; i++ {
		off := uint64(i) * uint64(entrySize)
		if off+uint64(entrySize) > uint64(len(buf)) {
			break
		}
		rec := buf[off : off+uint64(entrySize)]

		if allZero(rec[0:16]) {
			continue
		}

		startLba := binary.LittleEndian.Uint64(rec[32:40])
		endLba := binary.LittleEndian.Uint64(rec[40:48])

		if endLba < startLba {
			// saturates to zero rather than wrapping; such entries are
			// malformed and dropped rather than exposed with a bogus size.
			log.Printf("gpt: dropping entry %d: end LBA %d is before start LBA %d", i, endLba, startLba)
			continue
		}
		size := (endLba - startLba + 1) * sectorSize

		nameUnits := decodeUtf16Units(rec[56:min(56+2*entryNameCodeUnits, len(rec))])

		out = append(out, PartitionInfo{
			Name:        utf16ToUtf8(nameUnits),
			StartLba:    startLba,
			EndLba:      endLba,
			SizeInBytes: size,
		})
	}
	return out
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func decodeUtf16Units(b []byte) []uint16 {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i : 2*i+2])
	}
	return units
}

// utf16ToUtf8 decodes a NUL-terminated (or fully-consumed) UTF-16LE code
// unit sequence into UTF-8, correctly handling surrogate pairs. The source
// this package is grounded on only emitted 1- and 2-byte UTF-8 sequences
// and silently truncated any supra-BMP character; this is the fix the
// format invariant calls for.
func utf16ToUtf8(units []uint16) string {
	var out []byte
	for i := 0; i < len(units); i++ {
		c := units[i]
		if c == 0 {
			break
		}
		switch {
		case c < 0x80:
			out = append(out, byte(c))
		case c < 0x800:
			out = append(out, byte(0xC0|(c>>6)), byte(0x80|(c&0x3F)))
		case c >= 0xD800 && c <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			hi, lo := uint32(c), uint32(units[i+1])
			i++
			r := 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00)
			out = append(out,
				byte(0xF0|(r>>18)),
				byte(0x80|((r>>12)&0x3F)),
				byte(0x80|((r>>6)&0x3F)),
				byte(0x80|(r&0x3F)),
			)
		default:
			out = append(out,
				byte(0xE0|(c>>12)),
				byte(0x80|((c>>6)&0x3F)),
				byte(0x80|(c&0x3F)),
			)
		}
	}
	return string(out)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
