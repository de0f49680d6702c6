// Package cabi exposes the engine and transport to host-language bindings
// through a C ABI: create/destroy transport, open/close, create/destroy
// engine, identify, partitions (serialized as "name|size\n" lines into a
// caller buffer), dump/flash/erase by partition name. Handles are opaque
// cgo.Handle values; booleans are C ints (0/1); names are NUL-terminated
// UTF-8.
package main

// #include <stdlib.h>
import "C"

import (
	"context"
	"fmt"
	"os"
	"runtime/cgo"
	"strings"
	"unsafe"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/engine"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

//export DeepEye_CreateTransport
func DeepEye_CreateTransport() C.uintptr_t {
	h := cgo.NewHandle(transport.NewFdTransport())
	return C.uintptr_t(h)
}

//export DeepEye_DestroyTransport
func DeepEye_DestroyTransport(handle C.uintptr_t) {
	cgo.Handle(handle).Delete()
}

//export DeepEye_TransportOpen
func DeepEye_TransportOpen(handle C.uintptr_t, fd C.int) C.int {
	t := cgo.Handle(handle).Value().(*transport.FdTransport)
	return boolToC(t.Open(int(fd)) == nil)
}

//export DeepEye_TransportClose
func DeepEye_TransportClose(handle C.uintptr_t) {
	t := cgo.Handle(handle).Value().(*transport.FdTransport)
	t.Close()
}

//export DeepEye_CreateEngine
func DeepEye_CreateEngine(transportHandle C.uintptr_t, memoryName *C.char) C.uintptr_t {
	t := cgo.Handle(transportHandle).Value().(*transport.FdTransport)
	name := C.GoString(memoryName)
	h := cgo.NewHandle(engine.NewSession(t, name))
	return C.uintptr_t(h)
}

//export DeepEye_DestroyEngine
func DeepEye_DestroyEngine(handle C.uintptr_t) {
	s := cgo.Handle(handle).Value().(*engine.Session)
	s.Close()
	cgo.Handle(handle).Delete()
}

//export DeepEye_EngineIdentify
func DeepEye_EngineIdentify(handle C.uintptr_t) C.int {
	s := cgo.Handle(handle).Value().(*engine.Session)
	return boolToC(s.Identify(context.Background()) == nil)
}

//export DeepEye_EngineGetPartitions
func DeepEye_EngineGetPartitions(handle C.uintptr_t, outBuffer *C.char, bufferSize C.int) C.int {
	s := cgo.Handle(handle).Value().(*engine.Session)
	parts, err := s.GetPartitions(context.Background())
	if err != nil {
		return -1
	}

	var sb strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&sb, "%s|%d\n", p.Name, p.SizeInBytes)
	}
	result := sb.String()

	if len(result) >= int(bufferSize) {
		return -1
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(outBuffer)), int(bufferSize))
	n := copy(dst, result)
	dst[n] = 0
	return C.int(n)
}

//export DeepEye_EngineDumpPartition
func DeepEye_EngineDumpPartition(handle C.uintptr_t, name *C.char, outPath *C.char) C.int {
	s := cgo.Handle(handle).Value().(*engine.Session)
	data, err := s.DumpPartition(context.Background(), C.GoString(name))
	if err != nil {
		return boolToC(false)
	}
	if err := os.WriteFile(C.GoString(outPath), data, 0644); err != nil {
		return boolToC(false)
	}
	return boolToC(true)
}

//export DeepEye_EngineFlashPartition
func DeepEye_EngineFlashPartition(handle C.uintptr_t, name *C.char, inPath *C.char) C.int {
	s := cgo.Handle(handle).Value().(*engine.Session)
	data, err := os.ReadFile(C.GoString(inPath))
	if err != nil {
		return boolToC(false)
	}
	return boolToC(s.FlashPartition(context.Background(), C.GoString(name), data) == nil)
}

//export DeepEye_EngineErasePartition
func DeepEye_EngineErasePartition(handle C.uintptr_t, name *C.char) C.int {
	s := cgo.Handle(handle).Value().(*engine.Session)
	return boolToC(s.ErasePartition(context.Background(), C.GoString(name)) == nil)
}

func main() {}
