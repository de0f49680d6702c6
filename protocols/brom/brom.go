// Package brom drives MediaTek's BROM handshake, Download Agent upload and
// the DA-level command stream that becomes active once the DA has been
// jumped to. Every multi-byte command byte must be echoed back before its
// arguments are sent; violating that ordering is a session-fatal protocol
// error.
package brom

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

// DaAck is the one-byte status a DA-level write/erase command must return.
const DaAck byte = 0x5A

const (
	opReadReg32  = 0xD1
	opWriteReg32 = 0xD4
	opJumpDA     = 0xD5
	opSendDA     = 0xD7
	opDaReadErase = 0xBD
	opDaWrite     = 0xD0
)

const handshakeTimeout = 100 * time.Millisecond

// Handshake sends the fixed 4-byte probe sequence and requires each byte's
// bitwise complement echoed back before sending the next. Any mismatch or
// timeout aborts immediately without sending further bytes.
func Handshake(ctx context.Context, t transport.Transport) (bool, error) {
	seq := []byte{0xA1, 0xA2, 0xA3, 0xA4}
	echo := make([]byte, 1)
	for _, b := range seq {
		n, err := t.Send(ctx, []byte{b}, handshakeTimeout)
		if err != nil || n != 1 {
			return false, nil
		}
		n, err = t.Receive(ctx, echo, handshakeTimeout)
		if err != nil || n != 1 || echo[0] != ^b {
			return false, nil
		}
	}
	return true, nil
}

// EchoCmd sends a single command byte and requires it to be echoed back
// identically before the caller may send arguments.
func EchoCmd(ctx context.Context, t transport.Transport, cmd byte, timeout time.Duration) error {
	n, err := t.Send(ctx, []byte{cmd}, timeout)
	if err != nil {
		return err
	}
	if n != 1 {
		return protoerr.New(protoerr.KindProtocol, "brom.EchoCmd: short write")
	}
	echo := make([]byte, 1)
	n, err = t.Receive(ctx, echo, timeout)
	if err != nil {
		return err
	}
	if n != 1 || echo[0] != cmd {
		return protoerr.New(protoerr.KindProtocol, "brom.EchoCmd: echo mismatch")
	}
	return nil
}

// ReadReg32 issues opcode 0xD1 and reads a little-endian register value.
func ReadReg32(ctx context.Context, t transport.Transport, addr uint32, timeout time.Duration) (uint32, error) {
	if err := EchoCmd(ctx, t, opReadReg32, timeout); err != nil {
		return 0, err
	}
	addrBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(addrBuf, addr)
	if _, err := t.Send(ctx, addrBuf, timeout); err != nil {
		return 0, err
	}
	valBuf := make([]byte, 4)
	n, err := t.Receive(ctx, valBuf, timeout)
	if err != nil {
		return 0, err
	}
	if n != 4 {
		return 0, protoerr.New(protoerr.KindProtocol, "brom.ReadReg32: short response")
	}
	return binary.LittleEndian.Uint32(valBuf), nil
}

// WriteReg32 issues opcode 0xD4 and writes a little-endian register value.
func WriteReg32(ctx context.Context, t transport.Transport, addr, val uint32, timeout time.Duration) error {
	if err := EchoCmd(ctx, t, opWriteReg32, timeout); err != nil {
		return err
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, addr)
	if _, err := t.Send(ctx, buf, timeout); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf, val)
	n, err := t.Send(ctx, buf, timeout)
	if err != nil {
		return err
	}
	if n != 4 {
		return protoerr.New(protoerr.KindProtocol, "brom.WriteReg32: short write")
	}
	return nil
}

// SendDA issues opcode 0xD7, the DA load address loadAddr, the payload size
// (sent twice — once as payload size, once as the signature/secondary
// size), then the DA bytes themselves.
func SendDA(ctx context.Context, t transport.Transport, loadAddr uint32, data []byte) error {
	if err := EchoCmd(ctx, t, opSendDA, time.Second); err != nil {
		return err
	}
	size := uint32(len(data))
	words := make([]byte, 4)
	binary.LittleEndian.PutUint32(words, loadAddr)
	if _, err := t.Send(ctx, words, time.Second); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(words, size)
	if _, err := t.Send(ctx, words, time.Second); err != nil {
		return err
	}
	if _, err := t.Send(ctx, words, time.Second); err != nil { // sig/secondary size
		return err
	}
	n, err := t.Send(ctx, data, 5*time.Second)
	if err != nil {
		return err
	}
	if n != len(data) {
		return protoerr.New(protoerr.KindTransport, "brom.SendDA: short write of DA payload")
	}
	return nil
}

// JumpDA issues opcode 0xD5 followed by the 4-byte jump target. After this
// call only DA-level commands (DaRead/DaWrite/DaErase below) are valid.
func JumpDA(ctx context.Context, t transport.Transport, addr uint32) error {
	if err := EchoCmd(ctx, t, opJumpDA, time.Second); err != nil {
		return err
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, addr)
	n, err := t.Send(ctx, buf, time.Second)
	if err != nil {
		return err
	}
	if n != 4 {
		return protoerr.New(protoerr.KindProtocol, "brom.JumpDA: short write")
	}
	return nil
}

func daCommandPacket(family, subOp byte, offset uint64, count uint32) []byte {
	pkt := make([]byte, 16)
	pkt[0] = family
	pkt[1] = subOp
	binary.LittleEndian.PutUint64(pkt[2:10], offset)
	binary.LittleEndian.PutUint32(pkt[10:14], count)
	return pkt
}

// DaRead issues a 16-byte DA-level read command for count sectors
// (512 bytes each) starting at the given sector offset, once the device is
// running the DA.
func DaRead(ctx context.Context, t transport.Transport, offset uint64, count uint32) ([]byte, error) {
	pkt := daCommandPacket(opDaReadErase, 0x01, offset, count)
	if _, err := t.Send(ctx, pkt, time.Second); err != nil {
		return nil, err
	}
	out := make([]byte, int(count)*512)
	n, err := t.Receive(ctx, out, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if n != len(out) {
		return nil, protoerr.New(protoerr.KindTransport, "brom.DaRead: short read")
	}
	return out, nil
}

// DaWrite issues a 16-byte DA-level write command followed by the payload
// and checks for a one-byte DA_ACK status.
func DaWrite(ctx context.Context, t transport.Transport, offset uint64, data []byte) error {
	count := uint32(len(data) / 512)
	pkt := daCommandPacket(opDaWrite, 0x02, offset, count)
	if _, err := t.Send(ctx, pkt, time.Second); err != nil {
		return err
	}
	n, err := t.Send(ctx, data, 10*time.Second)
	if err != nil {
		return err
	}
	if n != len(data) {
		return protoerr.New(protoerr.KindTransport, "brom.DaWrite: short write")
	}
	return checkDaAck(ctx, t)
}

// DaErase issues a 16-byte DA-level erase command for count sectors
// starting at offset and checks for a one-byte DA_ACK status.
func DaErase(ctx context.Context, t transport.Transport, offset uint64, count uint32) error {
	pkt := daCommandPacket(opDaReadErase, 0x03, offset, count)
	if _, err := t.Send(ctx, pkt, time.Second); err != nil {
		return err
	}
	return checkDaAck(ctx, t)
}

func checkDaAck(ctx context.Context, t transport.Transport) error {
	status := make([]byte, 1)
	n, err := t.Receive(ctx, status, 5*time.Second)
	if err != nil {
		return err
	}
	if n != 1 || status[0] != DaAck {
		return protoerr.New(protoerr.KindProtocol, "brom: DA command not acknowledged")
	}
	return nil
}
