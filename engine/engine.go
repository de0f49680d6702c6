// Package engine implements the protocol engine: it probes a freshly
// attached device, selects one of the two mutually exclusive protocol
// families, and exposes a uniform partition-level API (identify, list,
// dump, flash, erase) that hides which family was chosen.
package engine

import (
	"context"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/edl"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/brom"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/gpt"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

// ProtocolKind tags which family a session's successful probe selected.
type ProtocolKind int

const (
	KindUnidentified ProtocolKind = iota
	KindQCOM
	KindMTK
)

func (k ProtocolKind) String() string {
	switch k {
	case KindQCOM:
		return "QCOM"
	case KindMTK:
		return "MTK"
	default:
		return "unidentified"
	}
}

const (
	gptHeaderLba  = 1
	defaultSector = uint64(512)
)

// Session holds one device's identified protocol family, the transport it
// was probed over, and the partition table once fetched. A session with no
// successful probe is unidentified and rejects partition operations.
type Session struct {
	t          transport.Transport
	kind       ProtocolKind
	edl        *edl.Manager
	partitions []gpt.PartitionInfo
	cancelled  bool
}

// NewSession wraps an already-open transport. Call Identify before any
// partition operation.
func NewSession(t transport.Transport, memoryName string) *Session {
	return &Session{t: t, edl: edl.New(t, memoryName)}
}

// Kind reports the session's tagged protocol family.
func (s *Session) Kind() ProtocolKind { return s.kind }

// Cancel marks the session cancelled; the next sector read or write (a GPT
// read, dump or flash) checks the flag before it starts and returns
// Cancelled. A transfer already in progress is not interrupted by it, and
// ErasePartition does not check it.
func (s *Session) Cancel() { s.cancelled = true }

// Identify tries the BROM handshake first; on success it tags the session
// MTK. Only on BROM failure does it fall back to a Sahara probe, tagging
// QCOM on success. This ordering is load-bearing: a failed Sahara probe can
// leave the device waiting mid-hello, while BROM's handshake is
// synchronous and failure-idempotent. Swapping the order risks hanging
// Qualcomm devices.
func (s *Session) Identify(ctx context.Context) error {
	ok, err := brom.Handshake(ctx, s.t)
	if err == nil && ok {
		s.kind = KindMTK
		return nil
	}

	if err := s.edl.ConnectSahara(ctx); err == nil {
		if err := s.edl.FirehoseHandshake(ctx); err == nil {
			s.kind = KindQCOM
			return nil
		}
	}

	s.kind = KindUnidentified
	return protoerr.New(protoerr.KindNotIdentified, "engine.Identify: neither BROM nor Sahara probe succeeded")
}

// requireIdentified returns NotIdentified without issuing any transport
// bytes if no probe has succeeded yet.
func (s *Session) requireIdentified() error {
	if s.kind == KindUnidentified {
		return protoerr.New(protoerr.KindNotIdentified, "engine: session has not identified a protocol")
	}
	return nil
}

// GetPartitions reads the primary GPT header (LBA 1) and its entry array,
// routed through whichever manager the probe selected, and caches the
// result on the session.
func (s *Session) GetPartitions(ctx context.Context) ([]gpt.PartitionInfo, error) {
	if err := s.requireIdentified(); err != nil {
		return nil, err
	}

	headerBytes, err := s.readSectors(ctx, gptHeaderLba, 1)
	if err != nil {
		return nil, err
	}
	h, err := gpt.ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	entryBytesLen := uint64(h.NumPartitionEntries) * uint64(h.PartitionEntrySize)
	entrySectors := (entryBytesLen + defaultSector - 1) / defaultSector
	entryBytes, err := s.readSectors(ctx, h.PartitionEntryLba, entrySectors)
	if err != nil {
		return nil, err
	}
	if err := h.ValidateEntriesCrc32(entryBytes); err != nil {
		return nil, err
	}

	parts := gpt.ParseEntries(entryBytes, h.NumPartitionEntries, h.PartitionEntrySize, defaultSector)
	s.partitions = parts
	return parts, nil
}

// findPartition looks up a cached partition by name.
func (s *Session) findPartition(name string) (gpt.PartitionInfo, bool) {
	for _, p := range s.partitions {
		if p.Name == name {
			return p, true
		}
	}
	return gpt.PartitionInfo{}, false
}

// DumpPartition reads a named partition in full, sized from the cached GPT
// entry rather than a fixed guess.
func (s *Session) DumpPartition(ctx context.Context, name string) ([]byte, error) {
	if err := s.requireIdentified(); err != nil {
		return nil, err
	}
	p, ok := s.findPartition(name)
	if !ok {
		return nil, protoerr.New(protoerr.KindFormat, "engine.DumpPartition: unknown partition "+name)
	}
	count := p.EndLba - p.StartLba + 1
	return s.readSectors(ctx, p.StartLba, count)
}

// FlashPartition writes data to a named partition starting at its cached
// GPT offset.
func (s *Session) FlashPartition(ctx context.Context, name string, data []byte) error {
	if err := s.requireIdentified(); err != nil {
		return err
	}
	p, ok := s.findPartition(name)
	if !ok {
		return protoerr.New(protoerr.KindFormat, "engine.FlashPartition: unknown partition "+name)
	}
	return s.writeSectors(ctx, name, p.StartLba, data)
}

// ErasePartition erases a named partition.
func (s *Session) ErasePartition(ctx context.Context, name string) error {
	if err := s.requireIdentified(); err != nil {
		return err
	}
	p, ok := s.findPartition(name)
	if !ok {
		return protoerr.New(protoerr.KindFormat, "engine.ErasePartition: unknown partition "+name)
	}

	switch s.kind {
	case KindQCOM:
		return s.edl.ErasePartition(ctx, name)
	case KindMTK:
		count := uint32(p.EndLba - p.StartLba + 1)
		return brom.DaErase(ctx, s.t, p.StartLba, count)
	default:
		return protoerr.New(protoerr.KindNotIdentified, "engine.ErasePartition: session not identified")
	}
}

func (s *Session) readSectors(ctx context.Context, startLba, count uint64) ([]byte, error) {
	if s.cancelled {
		return nil, protoerr.New(protoerr.KindCancelled, "engine.readSectors: session cancelled")
	}
	switch s.kind {
	case KindQCOM:
		return s.edl.ReadPartition(ctx, startLba, count)
	case KindMTK:
		return brom.DaRead(ctx, s.t, startLba, uint32(count))
	default:
		return nil, protoerr.New(protoerr.KindNotIdentified, "engine.readSectors: session not identified")
	}
}

func (s *Session) writeSectors(ctx context.Context, name string, startLba uint64, data []byte) error {
	if s.cancelled {
		return protoerr.New(protoerr.KindCancelled, "engine.writeSectors: session cancelled")
	}
	switch s.kind {
	case KindQCOM:
		return s.edl.WritePartition(ctx, name, startLba, data)
	case KindMTK:
		return brom.DaWrite(ctx, s.t, startLba, data)
	default:
		return protoerr.New(protoerr.KindNotIdentified, "engine.writeSectors: session not identified")
	}
}

// Close drops the cached partition table and releases the session's
// transport. Callers must not reuse the session afterward.
func (s *Session) Close() error {
	s.partitions = nil
	return s.t.Close()
}
