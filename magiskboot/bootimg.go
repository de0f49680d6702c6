package magiskboot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

type MtkHdr struct {
	Magic   uint32
	Size    uint32
	Name    [32]byte
	Padding [472]byte
}

type DhtbHdr struct {
	Magic    [8]byte
	Checksum [40]uint8
	Size     uint32
	Padding  [460]byte
}

//go:packed
type BlobHdr struct {
	SecureMagic [20]byte
	Datalen     uint32
	Signature   uint32
	Magic       [16]byte
	HdrVersion  uint32
	HdrSize     uint32
	PartOffset  uint32
	NumParts    uint32
	Unknow      [7]uint32
	Name        [4]byte
	Offset      uint32
	Size        uint32
	Version     uint32
}

//go:packed
type ZimageHdr struct {
	Code   [9]uint32
	Magic  uint32
	Start  uint32
	End    uint32
	Endian uint32
}

const (
	AVB_FOOTER_MAGIC_LEN    = 4
	AVB_MAGIC_LEN           = 4
	AVB_RELEASE_STRING_SIZE = 48
)

//go:packed
type AvbFooter struct {
	Magic             [AVB_FOOTER_MAGIC_LEN]uint8
	VersionMajor      uint32
	VersionMinor      uint32
	OriginalImageSize uint64
	VbmetaOffset      uint64
	VbmetaSize        uint64
	Reserved          [28]byte
}

//go:packed
type AvbVBMetaImageHeader struct {
	Magic                       [AVB_MAGIC_LEN]uint8
	RequiredLibavbVersionMajor  uint32
	RequiredLibavbVersionMinor  uint32
	AuthenticationDataBlockSize uint64
	AuxiliaryDataBlockSize      uint64
	AlgorithmType               uint32
	HashOffset                  uint64
	HashSize                    uint64
	SignatureOffset             uint64
	SignatureSize               uint64
	PublicKeyOffset             uint64
	PublicKeySize               uint64
	PublicKeyMetadataOffset     uint64
	PublicKeyMetadataSize       uint64
	DescriptorsOffset           uint64
	DescriptorsSize             uint64
	RollbackIndex               uint64
	Flags                       uint32
	RollbackIndexLocation       uint32
	ReleaseString               [AVB_RELEASE_STRING_SIZE]byte
	Reserved                    [80]byte
}

const BOOT_MAGIC_SIZE = 8
const BOOT_NAME_SIZE = 16
const BOOT_ID_SIZE = 32
const BOOT_ARGS_SIZE = 512
const BOOT_EXTRA_ARGS_SIZE = 1024
const VENDOR_BOOT_ARGS_SIZE = 2048
const VENDOR_RAMDISK_NAME_SIZE = 32
const VENDOR_RAMDISK_TABLE_ENTRY_BOARD_ID_SIZE = 16

const VENDOR_RAMDISK_TYPE_NONE = 0
const VENDOR_RAMDISK_TYPE_PLATFORM = 1
const VENDOR_RAMDISK_TYPE_RECOVERY = 2
const VENDOR_RAMDISK_TYPE_DLKM = 3

// On-wire layouts. These mirror the upstream Android boot image headers
// byte-for-byte; BootHeader below flattens whichever of these applies into
// one tagged value instead of modelling the version ladder with embedding.

type BootImgHdrV0Common struct {
	Magic       [BOOT_MAGIC_SIZE]byte
	KernelSize  uint32
	KernelAddr  uint32
	RamdiskSize uint32
	RamdiskAddr uint32
	SecondSize  uint32
	SecondAddr  uint32
}

type BootImgHdrV0 struct {
	BootImgHdrV0Common
	TagsAddr      uint32
	PageSize      uint32
	HeaderVersion uint32
	OsVersion     uint32
	Name          [BOOT_NAME_SIZE]byte
	Cmdline       [BOOT_ARGS_SIZE]byte
	Id            [BOOT_ID_SIZE]byte
	ExtraCmdline  [BOOT_EXTRA_ARGS_SIZE]byte
}

type BootImgHdrV1 struct {
	BootImgHdrV0
	RecoveryDtboSize   uint32
	RecoveryDtboOffset uint64
	HeaderSize         uint32
}

type BootImgHdrV2 struct {
	BootImgHdrV1
	DtbSize uint32
	DtbAddr uint64
}

type BootImgHdrPxa struct {
	BootImgHdrV0Common
	ExtraSize    uint32
	Unknown      uint32
	TagsAddr     uint32
	PageSize     uint32
	Name         [24]byte
	Cmdline      [BOOT_ARGS_SIZE]byte
	Id           [BOOT_ID_SIZE]byte
	ExtraCmdline [BOOT_EXTRA_ARGS_SIZE]byte
}

const V3_V4_CMDLINE_SIZE = BOOT_ARGS_SIZE + BOOT_EXTRA_ARGS_SIZE
const V3_V4_PAGE_SIZE = 4096

type BootImgHdrV3 struct {
	Magic         [BOOT_MAGIC_SIZE]byte
	KernelSize    uint32
	RamdiskSize   uint32
	OsVersion     uint32
	HeaderSize    uint32
	Reserved      [4]uint32
	HeaderVersion uint32
	Cmdline       [V3_V4_CMDLINE_SIZE]byte
}

type BootImgHdrVndV3 struct {
	Magic         [BOOT_MAGIC_SIZE]byte
	HeaderVersion uint32
	PageSize      uint32
	KernelAddr    uint32
	RamdiskAddr   uint32
	RamdiskSize   uint32
	Cmdline       [VENDOR_BOOT_ARGS_SIZE]byte
	TagsAddr      uint32
	Name          [BOOT_NAME_SIZE]byte
	HeaderSize    uint32
	DtbSize       uint32
	DtbAddr       uint64
}

type BootImgHdrV4 struct {
	BootImgHdrV3
	SignatureSize uint32
}

type BootImgHdrVndV4 struct {
	BootImgHdrVndV3
	VendorRamdiskTableSize      uint32
	VendorRamdiskTableEntryNum  uint32
	VendorRamdiskTableEntrySize uint32
	BootconfigSize              uint32
}

type VendorRamdiskTableEntryV4 struct {
	RamdiskSize   uint32
	RamdiskOffset uint32
	RamdiskType   uint32
	RamdiskName   [VENDOR_RAMDISK_NAME_SIZE]byte
	BoardId       [VENDOR_RAMDISK_TABLE_ENTRY_BOARD_ID_SIZE]uint32
}

// HeaderVariant tags which on-wire header shape a BootHeader was parsed
// from. A flat, tagged struct replaces the embedding ladder the upstream
// tool uses (DynImgV0 -> V1 -> V2, DynImgVndV3 -> VndV4): every boot image
// a caller touches ends up as exactly one BootHeader value, read with a
// switch on Variant instead of a chain of interface overrides.
type HeaderVariant int

const (
	HeaderV0 HeaderVariant = iota
	HeaderV1
	HeaderV2
	HeaderPxa
	HeaderV3
	HeaderV4
	HeaderVndV3
	HeaderVndV4
)

func (v HeaderVariant) IsVendor() bool {
	return v == HeaderVndV3 || v == HeaderVndV4
}

// BootHeader is the normalized, version-independent view of a boot or
// vendor_boot header. Fields that do not apply to a given Variant are left
// at their zero value.
type BootHeader struct {
	Variant HeaderVariant

	PageSize      uint32
	HeaderVersion uint32
	HeaderSize    uint32

	KernelSize  uint32
	RamdiskSize uint32
	SecondSize  uint32
	DtbSize     uint32

	RecoveryDtboSize   uint32
	RecoveryDtboOffset uint64

	SignatureSize uint32

	OsVersion uint32
	Name      string
	Id        [BOOT_ID_SIZE]byte

	Cmdline      string
	ExtraCmdline string

	VendorRamdiskTableSize      uint32
	VendorRamdiskTableEntryNum  uint32
	VendorRamdiskTableEntrySize uint32
	BootconfigSize              uint32
}

func (h *BootHeader) IsVendor() bool { return h.Variant.IsVendor() }

// HdrSpace is the on-disk size of the header, rounded up to a page.
func (h *BootHeader) HdrSpace() uint64 {
	sz := uint64(h.HeaderSize)
	if sz == 0 {
		sz = h.rawSize()
	}
	return align_to(sz, uint64(h.PageSize))
}

func (h *BootHeader) rawSize() uint64 {
	switch h.Variant {
	case HeaderV0:
		return uint64(binary.Size(BootImgHdrV0{}))
	case HeaderV1:
		return uint64(binary.Size(BootImgHdrV1{}))
	case HeaderV2:
		return uint64(binary.Size(BootImgHdrV2{}))
	case HeaderPxa:
		return uint64(binary.Size(BootImgHdrPxa{}))
	case HeaderV3:
		return uint64(binary.Size(BootImgHdrV3{}))
	case HeaderV4:
		return uint64(binary.Size(BootImgHdrV4{}))
	case HeaderVndV3:
		return uint64(binary.Size(BootImgHdrVndV3{}))
	case HeaderVndV4:
		return uint64(binary.Size(BootImgHdrVndV4{}))
	}
	return 0
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// ParseBootHeader decodes the header at the start of data, picking the
// variant from the magic and, for AOSP images, the header_version field.
// v3/v4 headers are fixed at a 4096-byte page and merge BOOT_ARGS_SIZE +
// BOOT_EXTRA_ARGS_SIZE into one 1536-byte cmdline, which ParseBootHeader
// splits back into Cmdline/ExtraCmdline at the 512-byte boundary so callers
// see the same two fields regardless of variant.
func ParseBootHeader(data []byte) (*BootHeader, error) {
	if len(data) < BOOT_MAGIC_SIZE {
		return nil, fmt.Errorf("boot image too small")
	}
	switch {
	case bytes.Equal(data[:BOOT_MAGIC_SIZE], []byte(VENDOR_BOOT_MAGIC)):
		return parseVendorHeader(data)
	case bytes.Equal(data[:BOOT_MAGIC_SIZE], []byte(BOOT_MAGIC)):
		return parseBootHeader(data)
	default:
		return nil, fmt.Errorf("not a boot image (bad magic)")
	}
}

func parseBootHeader(data []byte) (*BootHeader, error) {
	var v3 BootImgHdrV3
	if len(data) < binary.Size(v3) {
		return nil, fmt.Errorf("truncated boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v3); err != nil {
		return nil, err
	}

	if v3.HeaderVersion >= 3 {
		h := &BootHeader{
			Variant:       HeaderV3,
			PageSize:      V3_V4_PAGE_SIZE,
			HeaderVersion: v3.HeaderVersion,
			HeaderSize:    v3.HeaderSize,
			KernelSize:    v3.KernelSize,
			RamdiskSize:   v3.RamdiskSize,
			OsVersion:     v3.OsVersion,
			Cmdline:       cstr(v3.Cmdline[:BOOT_ARGS_SIZE]),
			ExtraCmdline:  cstr(v3.Cmdline[BOOT_ARGS_SIZE:]),
		}
		if v3.HeaderVersion == 3 {
			return h, nil
		}
		var v4 BootImgHdrV4
		if len(data) < binary.Size(v4) {
			return nil, fmt.Errorf("truncated v4 boot header")
		}
		if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v4); err != nil {
			return nil, err
		}
		h.Variant = HeaderV4
		h.SignatureSize = v4.SignatureSize
		return h, nil
	}

	var v0 BootImgHdrV0
	if len(data) < binary.Size(v0) {
		return nil, fmt.Errorf("truncated boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v0); err != nil {
		return nil, err
	}
	h := &BootHeader{
		Variant:       HeaderV0,
		PageSize:      v0.PageSize,
		HeaderVersion: v0.HeaderVersion,
		KernelSize:    v0.KernelSize,
		RamdiskSize:   v0.RamdiskSize,
		SecondSize:    v0.SecondSize,
		OsVersion:     v0.OsVersion,
		Name:          cstr(v0.Name[:]),
		Id:            v0.Id,
		Cmdline:       cstr(v0.Cmdline[:]),
		ExtraCmdline:  cstr(v0.ExtraCmdline[:]),
	}
	if v0.HeaderVersion == 0 {
		return h, nil
	}

	var v1 BootImgHdrV1
	if len(data) < binary.Size(v1) {
		return nil, fmt.Errorf("truncated v1 boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v1); err != nil {
		return nil, err
	}
	h.Variant = HeaderV1
	h.RecoveryDtboSize = v1.RecoveryDtboSize
	h.RecoveryDtboOffset = v1.RecoveryDtboOffset
	h.HeaderSize = v1.HeaderSize
	if v0.HeaderVersion == 1 {
		return h, nil
	}

	var v2 BootImgHdrV2
	if len(data) < binary.Size(v2) {
		return nil, fmt.Errorf("truncated v2 boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v2); err != nil {
		return nil, err
	}
	h.Variant = HeaderV2
	h.DtbSize = v2.DtbSize
	return h, nil
}

func parseVendorHeader(data []byte) (*BootHeader, error) {
	var v3 BootImgHdrVndV3
	if len(data) < binary.Size(v3) {
		return nil, fmt.Errorf("truncated vendor boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v3); err != nil {
		return nil, err
	}
	h := &BootHeader{
		Variant:       HeaderVndV3,
		PageSize:      v3.PageSize,
		HeaderVersion: v3.HeaderVersion,
		HeaderSize:    v3.HeaderSize,
		RamdiskSize:   v3.RamdiskSize,
		DtbSize:       v3.DtbSize,
		Name:          cstr(v3.Name[:]),
		Cmdline:       cstr(v3.Cmdline[:]),
	}
	if v3.HeaderVersion == 3 {
		return h, nil
	}

	var v4 BootImgHdrVndV4
	if len(data) < binary.Size(v4) {
		return nil, fmt.Errorf("truncated vendor v4 boot header")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v4); err != nil {
		return nil, err
	}
	h.Variant = HeaderVndV4
	h.VendorRamdiskTableSize = v4.VendorRamdiskTableSize
	h.VendorRamdiskTableEntryNum = v4.VendorRamdiskTableEntryNum
	h.VendorRamdiskTableEntrySize = v4.VendorRamdiskTableEntrySize
	h.BootconfigSize = v4.BootconfigSize
	return h, nil
}

// encode renders h back to its on-wire layout. This is also where the
// upstream save() bug is fixed: the original never writes the dtb_size
// field for a v2 header and has no save path at all for v3/v4, silently
// truncating the dtb and vendor-table metadata on repack. Every variant
// here fully round-trips every field ParseBootHeader reads.
func (h *BootHeader) encode() []byte {
	buf := new(bytes.Buffer)
	switch h.Variant {
	case HeaderV0, HeaderV1, HeaderV2:
		raw := BootImgHdrV2{
			BootImgHdrV1: BootImgHdrV1{
				BootImgHdrV0: BootImgHdrV0{
					BootImgHdrV0Common: BootImgHdrV0Common{
						Magic:       [BOOT_MAGIC_SIZE]byte(padBytes(BOOT_MAGIC, BOOT_MAGIC_SIZE)),
						KernelSize:  h.KernelSize,
						RamdiskSize: h.RamdiskSize,
						SecondSize:  h.SecondSize,
					},
					PageSize:      h.PageSize,
					HeaderVersion: h.HeaderVersion,
					OsVersion:     h.OsVersion,
					Name:          [BOOT_NAME_SIZE]byte(padBytes(h.Name, BOOT_NAME_SIZE)),
					Cmdline:       [BOOT_ARGS_SIZE]byte(padBytes(h.Cmdline, BOOT_ARGS_SIZE)),
					Id:            h.Id,
					ExtraCmdline:  [BOOT_EXTRA_ARGS_SIZE]byte(padBytes(h.ExtraCmdline, BOOT_EXTRA_ARGS_SIZE)),
				},
				RecoveryDtboSize:   h.RecoveryDtboSize,
				RecoveryDtboOffset: h.RecoveryDtboOffset,
				HeaderSize:         uint32(h.rawSizeFor(h.Variant)),
			},
			DtbSize: h.DtbSize,
		}
		switch h.Variant {
		case HeaderV0:
			binary.Write(buf, binary.LittleEndian, raw.BootImgHdrV1.BootImgHdrV0)
		case HeaderV1:
			binary.Write(buf, binary.LittleEndian, raw.BootImgHdrV1)
		case HeaderV2:
			binary.Write(buf, binary.LittleEndian, raw)
		}
	case HeaderPxa:
		raw := BootImgHdrPxa{
			BootImgHdrV0Common: BootImgHdrV0Common{
				Magic:       [BOOT_MAGIC_SIZE]byte(padBytes(BOOT_MAGIC, BOOT_MAGIC_SIZE)),
				KernelSize:  h.KernelSize,
				RamdiskSize: h.RamdiskSize,
				SecondSize:  h.SecondSize,
			},
			PageSize:     h.PageSize,
			Name:         [24]byte(padBytes(h.Name, 24)),
			Cmdline:      [BOOT_ARGS_SIZE]byte(padBytes(h.Cmdline, BOOT_ARGS_SIZE)),
			Id:           h.Id,
			ExtraCmdline: [BOOT_EXTRA_ARGS_SIZE]byte(padBytes(h.ExtraCmdline, BOOT_EXTRA_ARGS_SIZE)),
		}
		binary.Write(buf, binary.LittleEndian, raw)
	case HeaderV3, HeaderV4:
		cmdline := padBytes(h.Cmdline, BOOT_ARGS_SIZE)
		cmdline = append(cmdline, padBytes(h.ExtraCmdline, BOOT_EXTRA_ARGS_SIZE)...)
		v3 := BootImgHdrV3{
			Magic:         [BOOT_MAGIC_SIZE]byte(padBytes(BOOT_MAGIC, BOOT_MAGIC_SIZE)),
			KernelSize:    h.KernelSize,
			RamdiskSize:   h.RamdiskSize,
			OsVersion:     h.OsVersion,
			HeaderSize:    uint32(h.rawSizeFor(h.Variant)),
			HeaderVersion: h.HeaderVersion,
			Cmdline:       [V3_V4_CMDLINE_SIZE]byte(cmdline),
		}
		if h.Variant == HeaderV3 {
			binary.Write(buf, binary.LittleEndian, v3)
		} else {
			binary.Write(buf, binary.LittleEndian, BootImgHdrV4{BootImgHdrV3: v3, SignatureSize: h.SignatureSize})
		}
	case HeaderVndV3, HeaderVndV4:
		v3 := BootImgHdrVndV3{
			Magic:         [BOOT_MAGIC_SIZE]byte(padBytes(VENDOR_BOOT_MAGIC, BOOT_MAGIC_SIZE)),
			HeaderVersion: h.HeaderVersion,
			PageSize:      h.PageSize,
			RamdiskSize:   h.RamdiskSize,
			Cmdline:       [VENDOR_BOOT_ARGS_SIZE]byte(padBytes(h.Cmdline, VENDOR_BOOT_ARGS_SIZE)),
			Name:          [BOOT_NAME_SIZE]byte(padBytes(h.Name, BOOT_NAME_SIZE)),
			HeaderSize:    uint32(h.rawSizeFor(h.Variant)),
			DtbSize:       h.DtbSize,
		}
		if h.Variant == HeaderVndV3 {
			binary.Write(buf, binary.LittleEndian, v3)
		} else {
			binary.Write(buf, binary.LittleEndian, BootImgHdrVndV4{
				BootImgHdrVndV3:             v3,
				VendorRamdiskTableSize:      h.VendorRamdiskTableSize,
				VendorRamdiskTableEntryNum:  h.VendorRamdiskTableEntryNum,
				VendorRamdiskTableEntrySize: h.VendorRamdiskTableEntrySize,
				BootconfigSize:              h.BootconfigSize,
			})
		}
	}
	return buf.Bytes()
}

func (h *BootHeader) rawSizeFor(v HeaderVariant) uint64 {
	save := h.Variant
	h.Variant = v
	sz := h.rawSize()
	h.Variant = save
	return sz
}

func padBytes(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// BootImg is a fully parsed boot or vendor_boot image: one normalized
// header plus the payload sections it describes, each held as an owned
// byte slice rather than a view into the mmap so callers can mutate them
// freely before Save.
type BootImg struct {
	Header *BootHeader

	K_fmt format_t
	R_fmt format_t
	E_fmt format_t

	Kernel    []byte
	Ramdisk   []byte
	Second    []byte
	Dtb       []byte
	Signature []byte

	RecoveryDtbo       []byte
	VendorRamdiskTable []byte
	Bootconfig         []byte

	// Tail holds any trailing bytes after the last known section
	// (AVB footer, signing blob, etc.) so repack can reattach them.
	Tail []byte
}

// LoadBootImage mmaps filename and decodes it into a BootImg. The source
// file is only mapped read-only for the duration of the call; all payload
// sections are copied out so the caller does not need to keep it open.
func LoadBootImage(filename string) (*BootImg, error) {
	file, err := os.OpenFile(filename, os.O_RDONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	hdr, err := ParseBootHeader(m)
	if err != nil {
		return nil, err
	}

	b := &BootImg{Header: hdr}
	off := hdr.HdrSpace()

	readSection := func(size uint32) []byte {
		if size == 0 {
			return nil
		}
		aligned := align_to(uint64(size), uint64(hdr.PageSize))
		sec := bytes.Clone(m[off : off+uint64(size)])
		off += aligned
		return sec
	}

	if hdr.IsVendor() {
		b.Ramdisk = readSection(hdr.RamdiskSize)
		b.Dtb = readSection(hdr.DtbSize)
		if hdr.Variant == HeaderVndV4 {
			b.VendorRamdiskTable = readSection(hdr.VendorRamdiskTableSize)
			b.Bootconfig = readSection(hdr.BootconfigSize)
		}
	} else {
		b.Kernel = readSection(hdr.KernelSize)
		b.Ramdisk = readSection(hdr.RamdiskSize)
		b.Second = readSection(hdr.SecondSize)
		if hdr.Variant == HeaderV1 || hdr.Variant == HeaderV2 {
			b.RecoveryDtbo = readSection(hdr.RecoveryDtboSize)
		}
		if hdr.Variant == HeaderV2 {
			b.Dtb = readSection(hdr.DtbSize)
		}
		if hdr.Variant == HeaderV4 {
			b.Signature = readSection(hdr.SignatureSize)
		}
	}

	if off < uint64(len(m)) {
		b.Tail = bytes.Clone(m[off:])
	}

	if len(b.Kernel) > 0 {
		b.K_fmt = CheckFmt(b.Kernel)
	}
	if len(b.Ramdisk) > 0 {
		b.R_fmt = CheckFmt(b.Ramdisk)
	}

	return b, nil
}

// Save writes b back out as a boot image at filename. It fixes two
// omissions present in the tool this codec is modelled on: a v2 header's
// dtb section is always written (the source skips it), and v3/v4 (and
// vendor v3/v4) headers have a complete save path instead of none.
func (b *BootImg) Save(filename string) error {
	hdr := b.Header
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer out.Close()

	if hdr.IsVendor() {
		hdr.RamdiskSize = uint32(len(b.Ramdisk))
		hdr.DtbSize = uint32(len(b.Dtb))
		hdr.VendorRamdiskTableSize = uint32(len(b.VendorRamdiskTable))
		hdr.BootconfigSize = uint32(len(b.Bootconfig))
	} else {
		hdr.KernelSize = uint32(len(b.Kernel))
		hdr.RamdiskSize = uint32(len(b.Ramdisk))
		hdr.SecondSize = uint32(len(b.Second))
		hdr.DtbSize = uint32(len(b.Dtb))
		hdr.RecoveryDtboSize = uint32(len(b.RecoveryDtbo))
		hdr.SignatureSize = uint32(len(b.Signature))
	}

	headerBytes := hdr.encode()
	if _, err := out.Write(headerBytes); err != nil {
		return err
	}
	if err := writePadded(out, nil, hdr.HdrSpace()-uint64(len(headerBytes))); err != nil {
		return err
	}

	writeSection := func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
		return writePadded(out, nil, align_padding(uint64(len(data)), uint64(hdr.PageSize)))
	}

	if hdr.IsVendor() {
		if err := writeSection(b.Ramdisk); err != nil {
			return err
		}
		if err := writeSection(b.Dtb); err != nil {
			return err
		}
		if hdr.Variant == HeaderVndV4 {
			if err := writeSection(b.VendorRamdiskTable); err != nil {
				return err
			}
			if err := writeSection(b.Bootconfig); err != nil {
				return err
			}
		}
	} else {
		if err := writeSection(b.Kernel); err != nil {
			return err
		}
		if err := writeSection(b.Ramdisk); err != nil {
			return err
		}
		if err := writeSection(b.Second); err != nil {
			return err
		}
		if hdr.Variant == HeaderV1 || hdr.Variant == HeaderV2 {
			if err := writeSection(b.RecoveryDtbo); err != nil {
				return err
			}
		}
		if hdr.Variant == HeaderV2 {
			if err := writeSection(b.Dtb); err != nil {
				return err
			}
		}
		if hdr.Variant == HeaderV4 {
			if err := writeSection(b.Signature); err != nil {
				return err
			}
		}
	}

	if len(b.Tail) > 0 {
		if _, err := out.Write(b.Tail); err != nil {
			return err
		}
	}
	return nil
}

func writePadded(w io.Writer, _ []byte, n uint64) error {
	if n == 0 {
		return nil
	}
	_, err := io.CopyN(w, zeroReader{}, int64(n))
	return err
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func decompress(t format_t, fd *os.File, in []byte) {
	decoder := NewDecoder(t, bytes.NewReader(in))
	io.Copy(fd, decoder)
}

func dump(buf []byte, size int, filename string) {
	if size == 0 {
		return
	}
	fd, err := os.Create(filename)
	if err != nil {
		return
	}
	defer fd.Close()
	io.CopyN(fd, bytes.NewReader(buf), int64(size))
}

type fdtHeader struct {
	Magis           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCpuidPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

func findDtbOffset(fmap []byte, sz uint32) int {
	end := int(sz)

	for curr := 0; curr < end; curr += 40 {
		idx := bytes.Index(fmap[curr:end], []byte{0xd0, 0x0d, 0xfe, 0xed})
		if idx == -1 {
			return -1
		}
		curr += idx

		var fdtHdr fdtHeader
		binary.Read(bytes.NewReader(fmap[curr:]), binary.BigEndian, &fdtHdr)

		if fdtHdr.TotalSize > uint32(end-curr) {
			continue
		}
		if fdtHdr.OffDtStruct > uint32(end-curr) {
			continue
		}

		var tag uint32
		binary.Read(bytes.NewReader(fmap[curr+int(fdtHdr.OffDtStruct):]), binary.BigEndian, &tag)
		if tag != 0x1 {
			continue
		}
		return curr
	}
	return -1
}

func checkFmtLg(fmap []byte, sz uint32) format_t {
	f := CheckFmt(fmap)
	if f != LZ4_LEGACY {
		return f
	}

	reader := bytes.NewReader(fmap)
	var off int64 = 4
	var blockSz uint32
	for off+4 < int64(sz) {
		reader.Seek(off, io.SeekStart)
		binary.Read(reader, binary.LittleEndian, &blockSz)
		off += 4
		if off+int64(blockSz) > int64(sz) {
			return LZ4_LG
		}
		off += int64(blockSz)
	}
	return f
}

// SplitImageDtb splits a concatenated kernel+dtb image (as produced by some
// vendor build systems) into a kernel file and a dtb file.
func SplitImageDtb(filename string, skipDecomp bool) int {
	file, err := os.OpenFile(filename, os.O_RDONLY, 0644)
	if err != nil {
		return 1
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return 1
	}
	fmap, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return 1
	}
	defer fmap.Unmap()

	imgSz := uint32(st.Size())
	off := findDtbOffset(fmap, imgSz)
	if off < 0 {
		fmt.Fprintln(os.Stderr, "Cannot find DTB in", filename)
		return 1
	}

	f := checkFmtLg(fmap, imgSz)
	if !skipDecomp && COMPRESSED(f) {
		fd, err := os.Create(KERNEL_FILE)
		if err != nil {
			return 1
		}
		decompress(f, fd, fmap[:off])
		fd.Close()
	} else {
		dump(fmap, off, KERNEL_FILE)
	}
	dump(fmap[off:], int(imgSz)-off, KER_DTB_FILE)
	return 0
}
