package magiskboot_test

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	magiskboot "github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot"
)

func TestAlign(t *testing.T) {
	t.Log("Test structure align size")

	tests := map[interface{}]int{
		magiskboot.MtkHdr{}:               512,
		magiskboot.DhtbHdr{}:              512,
		magiskboot.BlobHdr{}:              104,
		magiskboot.ZimageHdr{}:            52,
		magiskboot.AvbFooter{}:            64,
		magiskboot.AvbVBMetaImageHeader{}: 256,
		magiskboot.BootImgHdrV0{}:         1632,
		magiskboot.BootImgHdrV1{}:         1648,
		magiskboot.BootImgHdrV2{}:         1660,
		magiskboot.BootImgHdrPxa{}:        1640,
		magiskboot.BootImgHdrV3{}:         1580,
		magiskboot.BootImgHdrV4{}:         1584,
		magiskboot.BootImgHdrVndV3{}:      2112,
		magiskboot.BootImgHdrVndV4{}:      2128,
	}

	for v, s := range tests {
		rt := reflect.TypeOf(v)
		t.Logf("Check align of: %v", rt.Name())
		if ret := binary.Size(v); ret != s {
			t.Fatalf("Align mismatch at: %v, Except: %v, But: %v", rt.Name(), s, ret)
		}
	}
}

func TestParseBootHeaderV2(t *testing.T) {
	raw := magiskboot.BootImgHdrV2{
		BootImgHdrV1: magiskboot.BootImgHdrV1{
			BootImgHdrV0: magiskboot.BootImgHdrV0{
				BootImgHdrV0Common: magiskboot.BootImgHdrV0Common{
					Magic:       [8]byte{'A', 'N', 'D', 'R', 'O', 'I', 'D', '!'},
					KernelSize:  1024,
					RamdiskSize: 2048,
				},
				PageSize:      2048,
				HeaderVersion: 2,
			},
		},
		DtbSize: 512,
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, raw); err != nil {
		t.Fatal(err)
	}

	hdr, err := magiskboot.ParseBootHeader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Variant != magiskboot.HeaderV2 {
		t.Fatalf("expected HeaderV2, got %v", hdr.Variant)
	}
	if hdr.KernelSize != 1024 || hdr.RamdiskSize != 2048 || hdr.DtbSize != 512 {
		t.Fatalf("field mismatch: %+v", hdr)
	}
}
