package ramdisk_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot/ramdisk"
)

func TestArchive(t *testing.T) {
	a := ramdisk.New()

	err := a.LoadFromFile("test.cpio")
	if err != nil {
		t.Fatalf("Failed with %v", err)
	}
	defer a.Close()
	t.Logf("entries: %d", len(a.Entries))
	for _, v := range a.Keys {
		t.Logf("entry: %v: %v", v, a.Entries[v])
	}

	os.Remove("dump.cpio")
	a.Rm("test", true)

	if err := a.Add(0755, "test/README.md", "README.md"); err != nil {
		t.Fatal("Failed to add file", err)
	}

	if err := a.Dump("dump.cpio"); err != nil {
		t.Fatalf("Failed with %v", err)
	}
}

func TestRamdiskPatchMagisk(t *testing.T) {
	t.Log("Test patching an extracted ramdisk")

	a := ramdisk.New()
	if err := a.LoadFromFile("ramdisk.cpio"); err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	for _, k := range a.Keys {
		fmt.Fprintf(os.Stderr, "Entry: %s\n", k)
	}

	a.Patch(ramdisk.PatchMagisk)
	if !a.Exists("init.magisk.rc") {
		t.Fatal("expected init.magisk.rc hook entry after Magisk patch")
	}
	if a.Test()&ramdisk.MagiskPatched == 0 {
		t.Fatal("Test() should report MagiskPatched after patching")
	}

	if err := a.Dump("ramdisk_test.cpio"); err != nil {
		t.Fatal(err)
	}
}

func TestRunCommand(t *testing.T) {
	a := ramdisk.New()
	if err := a.RunCommand("mkdir 0755 foo"); err != nil {
		t.Fatal(err)
	}
	if !a.Exists("foo") {
		t.Fatal("expected foo to exist after mkdir command")
	}
	if err := a.RunCommand("exists foo"); err != nil {
		t.Fatal(err)
	}
	if err := a.RunCommand("exists bar"); err == nil {
		t.Fatal("expected error for nonexistent entry")
	}
}
