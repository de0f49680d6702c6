package bootpatch_test

import (
	"path/filepath"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/bootpatch"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot/ramdisk"
)

func TestExtractBootMissingFile(t *testing.T) {
	p := bootpatch.New(ramdisk.PatchMagisk)
	if _, err := p.ExtractBoot(filepath.Join(t.TempDir(), "nope.img")); err == nil {
		t.Fatal("expected error extracting a nonexistent boot image")
	}
}
