// Package sahara drives Qualcomm's Sahara handshake: an 8-byte framed
// command protocol used to deliver a programmer (the Firehose binary) to a
// device sitting in Emergency Download mode. Every frame is an 8-byte
// little-endian header (command, total length including the header)
// followed by a command-specific body.
package sahara

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

// Command identifies a Sahara frame's purpose.
type Command uint32

const (
	CmdHello         Command = 0x01
	CmdHelloResponse Command = 0x02
	CmdRead          Command = 0x03
	CmdWrite         Command = 0x04
	CmdDone          Command = 0x05
	CmdReset         Command = 0x07
)

const headerLen = 8

// helloResponseBody is the 32-byte body of a HelloResponse frame: version,
// minimum compatible version, max command packet length, mode, and four
// reserved words. This fills in the full body the reference implementation
// only stubbed with a placeholder word order.
type helloResponseBody struct {
	Version           uint32
	VersionMin        uint32
	MaxCmdPacketLen   uint32
	Mode              uint32
	Reserved          [4]uint32
}

// Mode values for HelloResponse.
const ModeImageTxPending uint32 = 2

func defaultHelloResponseBody() helloResponseBody {
	return helloResponseBody{
		Version:         1,
		VersionMin:      1,
		MaxCmdPacketLen: 0x30,
		Mode:            ModeImageTxPending,
	}
}

func (b helloResponseBody) encode() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], b.Version)
	binary.LittleEndian.PutUint32(buf[4:8], b.VersionMin)
	binary.LittleEndian.PutUint32(buf[8:12], b.MaxCmdPacketLen)
	binary.LittleEndian.PutUint32(buf[12:16], b.Mode)
	for i, r := range b.Reserved {
		binary.LittleEndian.PutUint32(buf[16+4*i:20+4*i], r)
	}
	return buf
}

// Frame is a decoded Sahara packet.
type Frame struct {
	Command Command
	Body    []byte
}

func encodeFrame(cmd Command, body []byte) []byte {
	buf := make([]byte, headerLen+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(cmd))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerLen+len(body)))
	copy(buf[headerLen:], body)
	return buf
}

// ReceiveFrame reads one Sahara frame off t. A read shorter than the 8-byte
// header is a framing error.
func ReceiveFrame(ctx context.Context, t transport.Transport, timeout time.Duration) (Frame, error) {
	buf := make([]byte, 1024)
	n, err := t.Receive(ctx, buf, timeout)
	if err != nil {
		return Frame{}, err
	}
	if n < headerLen {
		return Frame{}, protoerr.New(protoerr.KindProtocol, "sahara.ReceiveFrame: frame shorter than header")
	}
	cmd := Command(binary.LittleEndian.Uint32(buf[0:4]))
	length := binary.LittleEndian.Uint32(buf[4:8])
	if length < headerLen {
		return Frame{}, protoerr.New(protoerr.KindProtocol, "sahara.ReceiveFrame: invalid length field")
	}
	bodyLen := int(length) - headerLen
	if bodyLen < 0 || headerLen+bodyLen > n {
		bodyLen = n - headerLen
	}
	body := make([]byte, bodyLen)
	copy(body, buf[headerLen:headerLen+bodyLen])
	return Frame{Command: cmd, Body: body}, nil
}

func sendFrame(ctx context.Context, t transport.Transport, cmd Command, body []byte, timeout time.Duration) error {
	pkt := encodeFrame(cmd, body)
	n, err := t.Send(ctx, pkt, timeout)
	if err != nil {
		return err
	}
	if n != len(pkt) {
		return protoerr.New(protoerr.KindProtocol, "sahara.sendFrame: short write")
	}
	return nil
}

// readRequest is the device's request for a chunk of the programmer image
// during upload: image id, byte offset and byte length.
type readRequest struct {
	ImageID uint32
	Offset  uint32
	Length  uint32
}

func parseReadRequest(body []byte) (readRequest, bool) {
	if len(body) < 12 {
		return readRequest{}, false
	}
	return readRequest{
		ImageID: binary.LittleEndian.Uint32(body[0:4]),
		Offset:  binary.LittleEndian.Uint32(body[4:8]),
		Length:  binary.LittleEndian.Uint32(body[8:12]),
	}, true
}

// Hello receives and validates the device's Hello frame and replies with a
// fully populated HelloResponse. It returns a protocol error (session
// fatal, per the Sahara state machine) if the first frame is not Hello.
func Hello(ctx context.Context, t transport.Transport, timeout time.Duration) error {
	f, err := ReceiveFrame(ctx, t, timeout)
	if err != nil {
		return err
	}
	if f.Command != CmdHello {
		return protoerr.New(protoerr.KindProtocol, "sahara.Hello: unexpected command, expected Hello")
	}
	return sendFrame(ctx, t, CmdHelloResponse, defaultHelloResponseBody().encode(), timeout)
}

// SendProgrammer uploads the Firehose programmer image by serving the
// device's Read requests with slices of data until it sends Done. This
// restores the upload logic the reference implementation stubbed out as an
// always-succeeds no-op.
func SendProgrammer(ctx context.Context, t transport.Transport, data []byte, timeout time.Duration) error {
	for {
		f, err := ReceiveFrame(ctx, t, timeout)
		if err != nil {
			return err
		}
		switch f.Command {
		case CmdRead:
			req, ok := parseReadRequest(f.Body)
			if !ok {
				return protoerr.New(protoerr.KindProtocol, "sahara.SendProgrammer: malformed read request")
			}
			start := int(req.Offset)
			end := start + int(req.Length)
			if start < 0 || end > len(data) || start > end {
				return protoerr.New(protoerr.KindProtocol, "sahara.SendProgrammer: read request out of range")
			}
			n, err := t.Send(ctx, data[start:end], timeout)
			if err != nil {
				return err
			}
			if n != end-start {
				return protoerr.New(protoerr.KindTransport, "sahara.SendProgrammer: short write")
			}
		case CmdDone:
			return sendFrame(ctx, t, CmdDone, nil, timeout)
		default:
			return protoerr.New(protoerr.KindProtocol, "sahara.SendProgrammer: unexpected command during upload")
		}
	}
}
