// Package da parses the MediaTek Download Agent container: a fixed header
// followed by a flat array of section records describing offset, size,
// load address and signature location within the DA blob.
package da

import "encoding/binary"

const headerSize = 12
const sectionSize = 24

// Magic values accepted for Header.Magic; some DA versions store it
// byte-reversed.
const (
	Magic         uint32 = 0x4D544B5F
	MagicReversed uint32 = 0x5F4B544D
)

// Header is the fixed DA container header.
type Header struct {
	Magic   uint32
	Version uint32
	DaCount uint32
}

// Section describes one DA payload section.
type Section struct {
	DaIndex   uint32
	DaOffset  uint32
	DaSize    uint32
	DaAddress uint32
	SigOffset uint32
	SigSize   uint32
}

// Validate reports whether buf begins with a recognized DA magic.
func Validate(buf []byte) bool {
	if len(buf) < headerSize {
		return false
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	return magic == Magic || magic == MagicReversed
}

// ParseHeader decodes the fixed DA header. Callers should check Validate
// first.
func ParseHeader(buf []byte) (*Header, bool) {
	if len(buf) < headerSize {
		return nil, false
	}
	return &Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint32(buf[4:8]),
		DaCount: binary.LittleEndian.Uint32(buf[8:12]),
	}, true
}

// ParseSections reads DaCount section records starting immediately after
// the header. If a record would extend past the end of buf, parsing stops
// early and returns what was parsed so far with no error — truncation is a
// caller decision, not a parse failure.
func ParseSections(buf []byte) []Section {
	if !Validate(buf) {
		return nil
	}
	h, ok := ParseHeader(buf)
	if !ok {
		return nil
	}

	var sections []Section
	off := headerSize
	for i := uint32(0); i < h.DaCount; i++ {
		if off+sectionSize > len(buf) {
			break
		}
		rec := buf[off : off+sectionSize]
		sections = append(sections, Section{
			DaIndex:   binary.LittleEndian.Uint32(rec[0:4]),
			DaOffset:  binary.LittleEndian.Uint32(rec[4:8]),
			DaSize:    binary.LittleEndian.Uint32(rec[8:12]),
			DaAddress: binary.LittleEndian.Uint32(rec[12:16]),
			SigOffset: binary.LittleEndian.Uint32(rec[16:20]),
			SigSize:   binary.LittleEndian.Uint32(rec[20:24]),
		})
		off += sectionSize
	}
	return sections
}

// EncodeHeader re-emits the fixed header region, used by the round-trip
// property test that requires re-parsing and re-emitting a DA container's
// header region to be byte-identical.
func EncodeHeader(h *Header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.DaCount)
	return buf
}
