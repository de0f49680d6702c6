// Package bootpatch orchestrates unpack -> ramdisk modify -> repack using
// the boot image codec and the ramdisk archive package. It replaces the
// reference implementation's extract/repack stubs (which only logged and
// always reported success) with the real boot image codec calls, and its
// "modify ramdisk" placeholder with an actual root-hook injection.
package bootpatch

import (
	"bytes"
	"fmt"
	"log"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot/ramdisk"
)

// Patcher orchestrates a boot image patch: extract, modify, repack. It
// guarantees nothing about the filesystem — extraction and repacking work
// entirely on in-memory buffers via magiskboot.BootImg.
type Patcher struct {
	Method ramdisk.PatchMethod
}

// New returns a Patcher that injects root hooks using method.
func New(method ramdisk.PatchMethod) *Patcher {
	return &Patcher{Method: method}
}

// Patch loads inputPath as a boot image, patches its ramdisk in place for
// the configured method, and saves the result to outputPath.
func (p *Patcher) Patch(inputPath, outputPath string) error {
	log.Printf("[PATCHER] initializing patch sequence for method %v", p.Method)

	img, err := p.ExtractBoot(inputPath)
	if err != nil {
		return fmt.Errorf("bootpatch: extract: %w", err)
	}

	if err := p.patchRamdisk(img); err != nil {
		return fmt.Errorf("bootpatch: ramdisk patch: %w", err)
	}

	if err := p.RepackBoot(img, outputPath); err != nil {
		return fmt.Errorf("bootpatch: repack: %w", err)
	}
	return nil
}

// ExtractBoot loads and parses a boot image's container and sections. This
// is the real boot-image-codec call the reference "native call to
// ./magiskboot unpack" comment stood in for.
func (p *Patcher) ExtractBoot(inputPath string) (*magiskboot.BootImg, error) {
	log.Printf("[PATCHER] unpacking boot image: %s", inputPath)
	return magiskboot.LoadBootImage(inputPath)
}

// RepackBoot re-encodes img's sections and header and writes the result to
// outputPath.
func (p *Patcher) RepackBoot(img *magiskboot.BootImg, outputPath string) error {
	log.Printf("[PATCHER] repacking patched image to: %s", outputPath)
	return img.Save(outputPath)
}

// patchRamdisk decompresses img's ramdisk into a cpio archive, injects the
// configured method's root hook, recompresses, and replaces img.Ramdisk.
// This is where the reference implementation's "in a real implementation
// we'd modify the ramdisk here" placeholder becomes real work.
func (p *Patcher) patchRamdisk(img *magiskboot.BootImg) error {
	log.Println("[PATCHER] injecting root hooks into ramdisk")

	raw, err := decompressRamdisk(img)
	if err != nil {
		return err
	}

	a := ramdisk.New()
	if err := a.LoadFromData(raw); err != nil {
		return fmt.Errorf("loading ramdisk cpio: %w", err)
	}
	defer a.Close()

	a.Patch(p.Method)

	patched, err := a.DumpBytes()
	if err != nil {
		return fmt.Errorf("dumping patched cpio: %w", err)
	}

	recompressed, err := recompressRamdisk(img, patched)
	if err != nil {
		return err
	}
	img.Ramdisk = recompressed
	return nil
}

func decompressRamdisk(img *magiskboot.BootImg) ([]byte, error) {
	fmtType := magiskboot.CheckFmt(img.Ramdisk)
	if !magiskboot.COMPRESSED(fmtType) {
		return img.Ramdisk, nil
	}
	img.R_fmt = fmtType
	d := magiskboot.NewDecoder(fmtType, bytes.NewReader(img.Ramdisk))
	defer d.Close()
	return d.Decode()
}

func recompressRamdisk(img *magiskboot.BootImg, raw []byte) ([]byte, error) {
	if !magiskboot.COMPRESSED(img.R_fmt) {
		return raw, nil
	}
	var buf bytes.Buffer
	e := magiskboot.NewEncoder(img.R_fmt, nil)
	if _, err := e.Write(raw, &buf); err != nil {
		return nil, fmt.Errorf("recompressing ramdisk: %w", err)
	}
	return buf.Bytes(), nil
}
