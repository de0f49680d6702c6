// Command deepeye-cli is the unified command-line front end: boot image
// unpack/repack/cpio/compress/decompress/hexpatch/sha1/split from the boot
// image codec, plus identify/partitions/dump/flash/erase against a live
// device session.
package main

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/engine"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot/ramdisk"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func usage() {
	fmt.Fprintf(os.Stderr, `deepeye-cli - DeepEye device recovery and boot image tool

Usage: %s <action> [args...]

Device actions:
  identify
    Probe the attached device and print which protocol family (MTK/QCOM)
    it was identified as.
  partitions
    Print the device's GPT partition table as " - <name> (<kb> KB)" lines.
  dump <name> <outfile>
    Read partition <name> in full and write it to <outfile>.
  flash <name> <infile>
    Write <infile> to partition <name>.
  erase <name>
    Erase partition <name>.

Boot image actions:
  unpack <bootimg>
    Unpack <bootimg> into header/kernel/ramdisk.cpio/... in the current
    directory.
  repack <origbootimg> [outbootimg]
    Repack components in the current directory into [outbootimg], or
    new-boot.img if not specified.
  split <file>
    Split image.*-dtb into kernel + kernel_dtb.
  cpio <incpio> [commands...]
    Run cpio commands against <incpio> in place.
  compress[=format] <infile> [outfile]
  decompress <infile> [outfile]
  hexpatch <file> <hexpattern1> <hexpattern2>
  sha1 <file>
`, os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	action := strings.TrimLeft(os.Args[1], "-")
	args := os.Args[2:]

	switch {
	case action == "identify":
		cmdIdentify()
	case action == "partitions":
		cmdPartitions()
	case action == "dump" && len(args) >= 2:
		cmdDump(args[0], args[1])
	case action == "flash" && len(args) >= 2:
		cmdFlash(args[0], args[1])
	case action == "erase" && len(args) >= 1:
		cmdErase(args[0])
	case action == "unpack" && len(args) >= 1:
		cmdUnpack(args[0])
	case action == "repack" && len(args) >= 1:
		out := magiskboot.NEW_BOOT
		if len(args) > 1 {
			out = args[1]
		}
		cmdRepack(args[0], out)
	case action == "split" && len(args) >= 1:
		os.Exit(magiskboot.SplitImageDtb(args[0], false))
	case action == "cpio" && len(args) >= 1:
		cmdCpio(args)
	case action == "sha1" && len(args) >= 1:
		cmdSha1(args[0])
	case action == "hexpatch" && len(args) >= 3:
		if magiskboot.HexPatch(args[0], args[1], args[2]) {
			os.Exit(0)
		}
		os.Exit(1)
	case action == "decompress" && len(args) >= 1:
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		magiskboot.Decompress(args[0], out)
	case strings.HasPrefix(action, "compress") && len(args) >= 1:
		format := "gzip"
		if len(action) > 8 && action[8] == '=' {
			format = action[9:]
		}
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		magiskboot.Compress(format, args[0], out)
	default:
		usage()
	}
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", a...)
	os.Exit(1)
}

func openSession() *engine.Session {
	fdEnv := os.Getenv("DEEPEYE_FD")
	if fdEnv == "" {
		fail("DEEPEYE_FD must name the open bulk transport file descriptor")
	}
	var fd int
	if _, err := fmt.Sscanf(fdEnv, "%d", &fd); err != nil {
		fail("invalid DEEPEYE_FD: %v", err)
	}

	t := transport.NewFdTransport()
	if err := t.Open(fd); err != nil {
		fail("opening transport: %v", err)
	}

	memoryName := os.Getenv("DEEPEYE_STORAGE")
	s := engine.NewSession(t, memoryName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Identify(ctx); err != nil {
		fail("identify: %v", err)
	}
	return s
}

func cmdIdentify() {
	s := openSession()
	defer s.Close()
	fmt.Printf("identified: %s\n", s.Kind())
}

func cmdPartitions() {
	s := openSession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	parts, err := s.GetPartitions(ctx)
	if err != nil {
		fail("partitions: %v", err)
	}
	for _, p := range parts {
		fmt.Printf(" - %s (%d KB)\n", p.Name, p.SizeInBytes/1024)
	}
}

func cmdDump(name, outPath string) {
	s := openSession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.GetPartitions(ctx); err != nil {
		fail("partitions: %v", err)
	}
	data, err := s.DumpPartition(ctx, name)
	if err != nil {
		fail("dump %s: %v", name, err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		fail("writing %s: %v", outPath, err)
	}
}

func cmdFlash(name, inPath string) {
	s := openSession()
	defer s.Close()

	data, err := os.ReadFile(inPath)
	if err != nil {
		fail("reading %s: %v", inPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.GetPartitions(ctx); err != nil {
		fail("partitions: %v", err)
	}
	if err := s.FlashPartition(ctx, name, data); err != nil {
		fail("flash %s: %v", name, err)
	}
}

func cmdErase(name string) {
	s := openSession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.GetPartitions(ctx); err != nil {
		fail("partitions: %v", err)
	}
	if err := s.ErasePartition(ctx, name); err != nil {
		fail("erase %s: %v", name, err)
	}
}

func cmdUnpack(path string) {
	img, err := magiskboot.LoadBootImage(path)
	if err != nil {
		fail("unpack: %v", err)
	}

	write := func(name string, data []byte) {
		if len(data) == 0 {
			return
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			fail("unpack: writing %s: %v", name, err)
		}
	}
	write(magiskboot.KERNEL_FILE, img.Kernel)
	write(magiskboot.RAMDISK_FILE, img.Ramdisk)
	write(magiskboot.SECOND_FILE, img.Second)
	write(magiskboot.DTB_FILE, img.Dtb)
	write(magiskboot.RECV_DTBO_FILE, img.RecoveryDtbo)
	write(magiskboot.BOOTCONFIG_FILE, img.Bootconfig)

	fmt.Printf("unpacked %s (variant %v)\n", path, img.Header.Variant)
}

func cmdRepack(origPath, outPath string) {
	img, err := magiskboot.LoadBootImage(origPath)
	if err != nil {
		fail("repack: loading original %s: %v", origPath, err)
	}
	if err := img.Save(outPath); err != nil {
		fail("repack: %v", err)
	}
}

func cmdCpio(args []string) {
	a := ramdisk.New()
	if err := a.LoadFromFile(args[0]); err != nil {
		fail("cpio: %v", err)
	}
	defer a.Close()

	for _, cmd := range args[1:] {
		if err := a.RunCommand(cmd); err != nil {
			fail("cpio %q: %v", cmd, err)
		}
	}
	if err := a.Dump(args[0]); err != nil {
		fail("cpio: dumping %s: %v", args[0], err)
	}
}

func cmdSha1(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		fail("sha1: %v", err)
	}
	fmt.Printf("%x\n", h.Sum(nil))
}
