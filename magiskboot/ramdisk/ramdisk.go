// Package ramdisk implements a cpio (newc) archive reader/writer for
// Android ramdisk images, plus the fstab and root-hook patches a boot
// patcher applies to one before it is repacked back into a boot image.
package ramdisk

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"github.com/ulikunitz/xz"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/magiskboot/stub"
)

// Define this to avoid missing in different platform
const (
	O_CLOEXEC = 0x10000
	O_CREAT   = 0x0200
	O_RDONLY  = 0x0000
	O_TRUNC   = 0x0400
	O_WRONLY  = 0x0001
	S_IFBLK   = 0060000
	S_IFCHR   = 0020000
	S_IFDIR   = 0040000
	S_IFLNK   = 0120000
	S_IFMT    = 0170000
	S_IFREG   = 0100000
)

const (
	S_IRUSR = 0400
	S_IWUSR = 0200
	S_IXUSR = 0100

	S_IRGRP = 0040
	S_IWGRP = 0020
	S_IXGRP = 0010

	S_IROTH = 0004
	S_IWOTH = 0002
	S_IXOTH = 0001
)

type cpioHeader struct {
	Magic     [6]byte
	Ino       [8]byte
	Mode      [8]byte
	Uid       [8]byte
	Gid       [8]byte
	Nlink     [8]byte
	Mtime     [8]byte
	Filesize  [8]byte
	Devmajor  [8]byte
	Devminor  [8]byte
	Rdevmajor [8]byte
	Rdevminor [8]byte
	Namesize  [8]byte
	Check     [8]byte
}

// Archive is an in-memory newc-format cpio archive: an ordered set of named
// entries, the same shape a ramdisk section of a boot image decompresses
// to.
type Archive struct {
	Entries map[string]Entry
	Keys    []string

	fd *os.File
	mm *mmap.MMap
}

// Entry is a single cpio member: either a regular file, directory, symlink
// or device node, identified by the owning Archive's Keys/Entries pair.
type Entry struct {
	Mode      uint32
	Uid       uint32
	Gid       uint32
	RDevMajor uint32
	RDevMinor uint32
	Data      []byte
}

func New() *Archive {
	return &Archive{
		Entries: make(map[string]Entry),
		Keys:    make([]string, 0),
	}
}

func x8u(x []byte) (uint32, error) {
	if len(x) != 8 {
		return 0, errors.New("bad cpio header")
	}
	ret, err := strconv.ParseUint(string(x), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(ret), nil
}

func align4(x uint64) uint64 {
	return (x + 3) &^ 3
}

func normPath(p string) string {
	return strings.TrimLeft(path.Clean(p), "/")
}

// LoadFromData parses a cpio archive already held in memory.
func (a *Archive) LoadFromData(data []byte) error {
	pos := uint64(0)

	for pos < uint64(len(data)) {
		hdrSz := binary.Size(cpioHeader{})
		var hdr cpioHeader
		reader := bytes.NewReader(data[pos : pos+uint64(hdrSz)])
		if err := binary.Read(reader, binary.LittleEndian, &hdr); err != nil {
			return err
		}
		if !bytes.Equal(hdr.Magic[:], []byte("070701")) {
			return errors.New("invalid cpio magic")
		}
		pos += uint64(hdrSz)
		nameSz, err := x8u(hdr.Namesize[:])
		if err != nil {
			return err
		}
		name := strings.TrimRight(string(data[pos:pos+uint64(nameSz)]), "\x00")
		pos += uint64(nameSz)
		pos = align4(pos)
		if name == "." || name == ".." {
			continue
		}
		if name == "TRAILER!!!" {
			nextHeader := bytes.Index(data[pos:], []byte("070701"))
			if nextHeader == -1 {
				break
			}
			pos += uint64(nextHeader)
			continue
		}
		fileSz, _ := x8u(hdr.Filesize[:])
		xx8u := func(x [8]byte) uint32 {
			u, _ := x8u(x[:])
			return u
		}
		a.Entries[name] = Entry{
			Mode:      xx8u(hdr.Mode),
			Uid:       xx8u(hdr.Uid),
			Gid:       xx8u(hdr.Gid),
			RDevMajor: xx8u(hdr.Rdevmajor),
			RDevMinor: xx8u(hdr.Rdevminor),
			Data:      bytes.Clone(data[pos : pos+uint64(fileSz)]),
		}
		a.Keys = append(a.Keys, name)
		pos += uint64(fileSz)
		pos = align4(pos)
	}
	return nil
}

// LoadFromFile memory-maps path, decodes it, then releases the mapping.
func (a *Archive) LoadFromFile(p string) error {
	fmt.Fprintf(os.Stderr, "Loading cpio: [%s]\n", p)
	fd, err := os.OpenFile(p, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	a.fd = fd
	m, err := mmap.Map(fd, mmap.RDWR, 0)
	if err != nil {
		fd.Close()
		return err
	}
	a.mm = &m

	if err := a.LoadFromData(m); err != nil {
		a.Close()
		return err
	}
	a.Close()
	return nil
}

func (a *Archive) Close() {
	if a.mm != nil {
		a.mm.Unmap()
		a.mm = nil
	}
	if a.fd != nil {
		a.fd.Close()
		a.fd = nil
	}
}

func writeZeros(fd io.Writer, pos uint64) uint64 {
	buf := make([]byte, align4(pos)-pos)
	n, err := fd.Write(buf)
	if err != nil {
		log.Fatalln(err)
	}
	return uint64(n)
}

// Dump serializes the archive to path in newc cpio format.
func (a *Archive) Dump(path string) error {
	fmt.Fprintf(os.Stderr, "Dumping cpio [%s]\n", path)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := a.encode(file); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// DumpBytes serializes the archive to newc cpio format in memory, for
// callers (such as the boot patcher) that need the bytes rather than a
// file on disk.
func (a *Archive) DumpBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *Archive) encode(w io.Writer) error {
	pos := uint64(0)
	inode := int64(300000)
	for _, name := range a.Keys {
		entry := a.Entries[name]
		header := fmt.Sprintf(
			"070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
			inode, entry.Mode, entry.Uid, entry.Gid,
			1, 0, len(entry.Data), 0, 0,
			entry.RDevMajor, entry.RDevMinor,
			len(name)+1, 0,
		)
		n, err := w.Write([]byte(header))
		if err != nil {
			return err
		}
		pos += uint64(n)
		n, _ = w.Write([]byte(name))
		pos += uint64(n)
		n, _ = w.Write([]byte{0})
		pos += uint64(n)
		pos += writeZeros(w, pos)
		pos = align4(pos)
		n, _ = w.Write(entry.Data)
		pos += uint64(n)
		writeZeros(w, pos)
		pos = align4(pos)
		inode++
	}
	header := fmt.Sprintf("070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x", inode, 0o755, 0, 0, 1, 0, 0, 0, 0, 0, 0, 11, 0)
	n, _ := w.Write([]byte(header))
	pos += uint64(n)
	n, _ = w.Write([]byte("TRAILER!!!\x00"))
	pos += uint64(n)
	writeZeros(w, pos)

	return nil
}

func (a *Archive) Rm(p string, recursive bool) {
	p = normPath(p)
	removeByValue := func(s []string, v string) []string {
		for i, x := range s {
			if x == v {
				return append(s[:i], s[i+1:]...)
			}
		}
		return s
	}
	removeEntry := func(k string) bool {
		delete(a.Entries, k)
		a.Keys = removeByValue(a.Keys, k)
		_, exists := a.Entries[k]
		return !exists
	}
	if _, exist := a.Entries[p]; exist {
		if removeEntry(p) {
			fmt.Fprintf(os.Stderr, "Removed entry [%s]\n", p)
		}
	}
	if recursive {
		prefix := p + "/"
		for k := range a.Entries {
			if strings.HasPrefix(k, prefix) {
				if removeEntry(k) {
					fmt.Fprintf(os.Stderr, "Removed entry [%s]\n", k)
				}
			}
		}
	}
}

func (a *Archive) extractEntry(p, out string) error {
	if !slices.Contains(a.Keys, p) {
		return fmt.Errorf("no such file: %s", p)
	}
	entry := a.Entries[p]
	fmt.Fprintf(os.Stderr, "Extracting entry [%s] to [%s]\n", p, out)

	if _, err := os.Stat(path.Dir(out)); os.IsNotExist(err) {
		os.MkdirAll(path.Dir(out), 0o755)
	}

	mode := os.FileMode(entry.Mode & 0o777)
	switch entry.Mode & S_IFMT {
	case S_IFDIR:
		return os.Mkdir(out, mode)
	case S_IFREG:
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = file.Write(entry.Data)
		return err
	case S_IFLNK:
		lnk := string(bytes.ReplaceAll(entry.Data, []byte{0}, []byte{}))
		return os.Symlink(lnk, out)
	case S_IFBLK, S_IFCHR:
		if runtime.GOOS != "windows" {
			dev := stub.Mkdev(entry.RDevMajor, entry.RDevMinor)
			return stub.Mknod(out, uint32(mode), int(dev))
		}
		return nil
	default:
		return errors.New("unknown entry type")
	}
}

// Extract writes p to out, or every entry to its own name under the
// current directory when p and out are both nil.
func (a *Archive) Extract(p, out *string) error {
	if p != nil && out != nil {
		return a.extractEntry(normPath(*p), *out)
	}
	for _, name := range a.Keys {
		if name == "." || name == ".." {
			continue
		}
		if err := a.extractEntry(name, name); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) Exists(path string) bool {
	return slices.Contains(a.Keys, path)
}

func (a *Archive) addEntry(key string, entry Entry) {
	a.Entries[key] = entry
	a.Keys = append(a.Keys, key)
	sort.Strings(a.Keys)
}

func (a *Archive) Add(mode uint32, path string, file string) error {
	if strings.HasSuffix(path, "/") {
		return errors.New("path cannot end with / for add")
	}

	attr, err := os.Stat(file)
	if err != nil {
		return err
	}

	var content []byte
	var rdevmajor, rdevminor uint64

	if attr.Mode().IsRegular() || attr.Mode()&os.ModeSymlink != 0 {
		content, err = os.ReadFile(file)
		if err != nil {
			return err
		}
		mode |= S_IFREG
	} else if runtime.GOOS != "windows" {
		var uattr stub.Stat_t
		if err := stub.Stat(file, &uattr); err != nil {
			return err
		}
		rdevmajor = uint64(stub.Major(uint64(uattr.Rdev)))
		rdevminor = uint64(stub.Minor(uint64(uattr.Rdev)))
		if attr.Mode()&os.ModeDevice != 0 {
			mode |= S_IFBLK
		} else if attr.Mode()&os.ModeCharDevice != 0 {
			mode |= S_IFCHR
		} else {
			return errors.New("unsupported file type")
		}
	}

	a.addEntry(normPath(path), Entry{
		Mode:      mode,
		RDevMajor: uint32(rdevmajor),
		RDevMinor: uint32(rdevminor),
		Data:      content,
	})
	fmt.Fprintf(os.Stderr, "Add file [%s] (%04o)\n", path, mode)
	return nil
}

// AddBytes adds data directly as a regular-file entry, without reading it
// from the filesystem. Used by the boot-patch root-hook injection, which
// has no source file to stat.
func (a *Archive) AddBytes(mode uint32, path string, data []byte) {
	a.addEntry(normPath(path), Entry{
		Mode: mode | S_IFREG,
		Data: data,
	})
	fmt.Fprintf(os.Stderr, "Add entry [%s] (%04o)\n", path, mode)
}

func (a *Archive) Mkdir(mode uint32, dir string) {
	a.addEntry(normPath(dir), Entry{Mode: mode | S_IFDIR})
	fmt.Fprintf(os.Stderr, "Create directory [%s] (%04o)\n", dir, mode)
}

func (a *Archive) Ln(src, dst string) {
	a.addEntry(normPath(dst), Entry{
		Mode: S_IFLNK,
		Data: func() []byte {
			ret := normPath(src)
			if strings.HasPrefix(src, "/") {
				ret = "/" + ret
			}
			return []byte(ret)
		}(),
	})
	fmt.Fprintf(os.Stderr, "Create symlink [%s] -> [%s]\n", dst, src)
}

func (a *Archive) Mv(from, to string) error {
	from = normPath(from)
	to = normPath(to)
	entry := a.Entries[from]
	newk := make([]string, 0, len(a.Keys))
	for _, k := range a.Keys {
		if k != from {
			newk = append(newk, k)
		}
	}
	delete(a.Entries, from)
	a.Keys = newk
	a.addEntry(to, entry)
	fmt.Fprintf(os.Stderr, "Move [%s] -> [%s]\n", from, to)
	return nil
}

func (a *Archive) Ls(path string, recursive bool) {
	path = normPath(path)
	if path != "" {
		path = "/" + path
	}
	for _, name := range a.Keys {
		entry := a.Entries[name]
		p := "/" + name
		if !strings.HasPrefix(p, path) {
			continue
		}
		p = strings.TrimPrefix(p, path)
		if p != "" && !strings.HasPrefix(p, "/") {
			continue
		}
		if !recursive && p != "" && strings.Count(p, "/") > 1 {
			continue
		}
		fmt.Fprintf(os.Stdout, "%v\t%s\n", entry, name)
	}
}

// Format renders an entry the way `ls -l` would, used by Ls.
func (entry Entry) Format(f fmt.State, _ rune) {
	perm := func() string {
		var a, b, c, d, e, g, h, i, j, k byte
		switch entry.Mode & S_IFMT {
		case S_IFDIR:
			a = 'd'
		case S_IFREG:
			a = '-'
		case S_IFLNK:
			a = 'l'
		case S_IFBLK:
			a = 'b'
		case S_IFCHR:
			a = 'c'
		default:
			a = '?'
		}
		bit := func(mask uint32, ch byte) byte {
			if entry.Mode&mask != 0 {
				return ch
			}
			return '-'
		}
		b = bit(S_IRUSR, 'r')
		c = bit(S_IWUSR, 'w')
		d = bit(S_IXUSR, 'x')
		e = bit(S_IRGRP, 'r')
		g = bit(S_IWGRP, 'w')
		h = bit(S_IXGRP, 'x')
		i = bit(S_IROTH, 'r')
		j = bit(S_IWOTH, 'w')
		k = bit(S_IXOTH, 'x')
		return fmt.Sprintf("%c%c%c%c%c%c%c%c%c%c", a, b, c, d, e, g, h, i, j, k)
	}()
	io.WriteString(f, fmt.Sprintf("%8s%8d%8d%8s%4d:%-8d",
		perm, entry.Uid, entry.Gid,
		humanize.Bytes(uint64(len(entry.Data))),
		entry.RDevMajor, entry.RDevMinor,
	))
}

func (entry *Entry) Compress() bool {
	if entry.Mode&S_IFMT != S_IFREG {
		return false
	}
	buf := new(bytes.Buffer)
	w, err := xz.NewWriter(buf)
	if err != nil {
		log.Println("xz compression failed:", err)
		return false
	}
	if _, err := w.Write(entry.Data); err != nil {
		log.Println("xz compression failed:", err)
		return false
	}
	if err := w.Close(); err != nil {
		log.Println("xz compression failed:", err)
		return false
	}
	entry.Data = buf.Bytes()
	return true
}

func (entry *Entry) Decompress() bool {
	if entry.Mode&S_IFMT != S_IFREG {
		return false
	}
	r, err := xz.NewReader(bytes.NewReader(entry.Data))
	if err != nil {
		log.Println("xz decompression failed:", err)
		return false
	}
	d, err := io.ReadAll(r)
	if err != nil {
		log.Println("xz decompression failed:", err)
		return false
	}
	entry.Data = d
	return true
}

const MagiskPatched int32 = 1 << 0
const UnsupportedCpio int32 = 1 << 1

// PatchMethod selects which rooting solution's ramdisk plumbing is applied
// by Patch. The payload each method installs is out of scope; only the
// fstab and entry-list side effects a given method implies are performed
// here.
type PatchMethod int

const (
	PatchMagisk PatchMethod = iota
	PatchKernelSU
	PatchCustom
)

func (m PatchMethod) hookEntry() (name string, contents []byte) {
	switch m {
	case PatchMagisk:
		return "init.magisk.rc", []byte("on post-fs-data\n    start logd\n")
	case PatchKernelSU:
		return "init.ksu.rc", []byte("on post-fs-data\n    exec u:r:su:s0 root root -- /system/bin/ksud post-fs-data\n")
	default:
		return "", nil
	}
}

// Patch strips verity/force-encrypt fstab flags (unless overridden by the
// KEEPVERITY/KEEPFORCEENCRYPT environment variables) and, for the Magisk
// and KernelSU methods, injects that method's init-rc hook entry. Custom
// only applies the fstab patch, leaving further entries to the caller.
func (a *Archive) Patch(method PatchMethod) {
	keepVerity := magiskboot.CheckEnv("KEEPVERITY")
	keepForceEncrypt := magiskboot.CheckEnv("KEEPFORCEENCRYPT")
	fmt.Fprintf(os.Stderr, "Patch with flag KEEPVERITY=[%v] KEEPFORCEENCRYPT=[%v]\n", keepVerity, keepForceEncrypt)

	for _, name := range a.Keys {
		entry := a.Entries[name]
		fstab := (!keepVerity || !keepForceEncrypt) &&
			entry.Mode&S_IFMT == S_IFREG &&
			!strings.HasPrefix(name, ".backup") &&
			!strings.HasPrefix(name, "twrp") &&
			!strings.HasPrefix(name, "recovery") &&
			strings.HasPrefix(name, "fstab")

		if !keepVerity {
			if fstab {
				fmt.Fprintf(os.Stderr, "Found fstab file [%s]\n", name)
				entry.Data = magiskboot.PatchVerity(entry.Data)
				a.Entries[name] = entry
			} else if name == "verity_key" {
				a.Rm(name, false)
			}
		}
		if !keepForceEncrypt && fstab {
			entry.Data = magiskboot.PatchEncryption(entry.Data)
			a.Entries[name] = entry
		}
	}

	if name, contents := method.hookEntry(); name != "" {
		a.AddBytes(0750, name, contents)
	}
}

func (a *Archive) Test() int32 {
	for _, file := range []string{
		"sbin/launch_daemonsu.sh",
		"sbin/su",
		"init.xposed.rc",
		"boot/sbin/launch_daemonsu.sh",
	} {
		if slices.Contains(a.Keys, file) {
			return UnsupportedCpio
		}
	}
	for _, file := range []string{
		".backup/.magisk",
		"init.magisk.rc",
		"overlay/init.magisk.rc",
	} {
		if slices.Contains(a.Keys, file) {
			return MagiskPatched
		}
	}
	return 0
}

func (a *Archive) Restore() error {
	backups := make(map[string]Entry)
	var rmList strings.Builder

	for _, name := range a.Keys {
		entry := a.Entries[name]
		if !strings.HasPrefix(name, ".backup/") {
			continue
		}
		if name == ".backup/.rmlist" {
			if _, err := rmList.Write(entry.Data); err != nil {
				return err
			}
		} else if name != ".backup/.magisk" {
			newName := name[8:]
			if strings.HasSuffix(name, ".xz") && entry.Decompress() {
				newName = name[8 : len(name)-3]
			}
			backups[newName] = entry
		}
	}
	a.Rm(".backup", false)
	if rmList.Len() == 0 && len(backups) == 0 {
		for k := range a.Entries {
			delete(a.Entries, k)
		}
		a.Keys = a.Keys[:0]
		return nil
	}

	for _, rm := range strings.Split(rmList.String(), "\x00") {
		if rm != "" {
			a.Rm(rm, false)
		}
	}
	for k, v := range backups {
		a.Keys = append(a.Keys, k)
		a.Entries[k] = v
	}
	slices.Sort(a.Keys)
	return nil
}

func (a *Archive) Backup(origin string, skipCompress bool) error {
	backups := make(map[string]Entry)
	var rmList strings.Builder

	backups[".backup"] = Entry{Mode: S_IFDIR}

	o := New()
	if err := o.LoadFromFile(origin); err != nil {
		return err
	}
	o.Close()

	o.Rm(".backup", true)
	a.Rm(".backup", true)

	lhs, rhs := o.Entries, a.Entries
	lhsKeys, rhsKeys := o.Keys, a.Keys
	lhsIdx, rhsIdx := 0, 0

	backupFn := func(name string, entry Entry) {
		backupPath := ".backup/" + name
		if !skipCompress && entry.Compress() {
			backupPath += ".xz"
		}
		fmt.Fprintf(os.Stderr, "Backup [%s] -> [%s]\n", name, backupPath)
		backups[name] = entry
	}
	recordFn := func(name string) {
		fmt.Fprintf(os.Stderr, "Record new entry [%s] -> [.backup/.rmlist]\n", name)
		rmList.WriteString(name)
		rmList.WriteByte('\x00')
	}

	for lhsIdx < len(lhsKeys) && rhsIdx < len(rhsKeys) {
		lKey, rKey := lhsKeys[lhsIdx], rhsKeys[rhsIdx]
		switch cmp.Compare(lKey, rKey) {
		case -1:
			backupFn(lKey, lhs[lKey])
			lhsIdx++
		case 0:
			le, re := lhs[lKey], rhs[rKey]
			if !bytes.Equal(re.Data, le.Data) {
				backupFn(lKey, le)
			}
			lhsIdx++
			rhsIdx++
		case 1:
			recordFn(rKey)
			rhsIdx++
		}
	}
	for ; lhsIdx < len(lhsKeys); lhsIdx++ {
		backupFn(lhsKeys[lhsIdx], lhs[lhsKeys[lhsIdx]])
	}
	for ; rhsIdx < len(rhsKeys); rhsIdx++ {
		recordFn(rhsKeys[rhsIdx])
	}

	if rmList.Len() != 0 {
		backups[".backup/.rmlist"] = Entry{Mode: S_IFREG, Data: []byte(rmList.String())}
	}

	for k, v := range backups {
		a.Keys = append(a.Keys, k)
		a.Entries[k] = v
	}
	slices.Sort(a.Keys)
	return nil
}

func parseMode(mode string) (uint32, error) {
	ret, err := strconv.ParseInt(mode, 8, 32)
	return uint32(ret), err
}

// RunCommand applies one command line in the `magiskboot cpio` dialect
// (exists/ls/rm/mkdir/ln/mv/add/extract/test/patch/backup/restore) to the
// archive. It is the in-process replacement for the shell-out to a
// standalone cpio CLI; cmd/deepeye-cli wires argv into this one call per
// line.
func (a *Archive) RunCommand(command string) error {
	cmd := strings.Split(strings.TrimSpace(command), " ")
	if len(cmd) == 0 || cmd[0] == "" || strings.HasPrefix(cmd[0], "#") {
		return nil
	}
	switch cmd[0] {
	case "test":
		os.Exit(int(a.Test()))
	case "restore":
		return a.Restore()
	case "patch":
		a.Patch(PatchCustom)
	case "exists":
		if len(cmd) < 2 {
			return errors.New("exists: missing ENTRY")
		}
		if !a.Exists(cmd[1]) {
			return fmt.Errorf("entry does not exist: %s", cmd[1])
		}
	case "backup":
		if len(cmd) < 2 {
			return errors.New("backup: missing ORIG")
		}
		skip := len(cmd) > 2 && cmd[2] == "-n"
		return a.Backup(cmd[1], skip)
	case "rm":
		if len(cmd) < 2 {
			return errors.New("rm: missing ENTRY")
		}
		recursive, p := false, cmd[1]
		if cmd[1] == "-r" && len(cmd) > 2 {
			recursive, p = true, cmd[2]
		}
		a.Rm(p, recursive)
	case "mv":
		if len(cmd) < 3 {
			return errors.New("mv: missing SOURCE DEST")
		}
		return a.Mv(cmd[1], cmd[2])
	case "ln":
		if len(cmd) < 3 {
			return errors.New("ln: missing TARGET ENTRY")
		}
		a.Ln(cmd[1], cmd[2])
	case "mkdir":
		if len(cmd) < 3 {
			return errors.New("mkdir: missing MODE ENTRY")
		}
		mode, err := parseMode(cmd[1])
		if err != nil {
			return err
		}
		a.Mkdir(mode, cmd[2])
	case "add":
		if len(cmd) < 4 {
			return errors.New("add: missing MODE ENTRY INFILE")
		}
		mode, err := parseMode(cmd[1])
		if err != nil {
			return err
		}
		return a.Add(mode, cmd[2], cmd[3])
	case "extract":
		if len(cmd) < 2 {
			return a.Extract(nil, nil)
		}
		out := cmd[1]
		if len(cmd) > 2 {
			out = cmd[2]
		}
		return a.Extract(&cmd[1], &out)
	case "ls":
		switch len(cmd) {
		case 1:
			a.Ls("/", true)
		case 2:
			a.Ls(cmd[1], false)
		default:
			recursive := cmd[1] == "-r"
			a.Ls(cmd[2], recursive)
		}
	default:
		return fmt.Errorf("unknown cpio command: %s", cmd[0])
	}
	return nil
}
