// Package edl composes the Sahara handshake and Firehose XML session into
// the read/write/erase partition API the protocol engine dispatches to for
// Qualcomm devices in Emergency Download mode.
package edl

import (
	"context"
	"time"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protoerr"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/firehose"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/sahara"
	"github.com/DeepEyeCrypto/DeepEyeUnlocker/transport"
)

const (
	saharaTimeout   = 2 * time.Second
	xmlSendTimeout  = 2 * time.Second
	xmlRecvTimeout  = 5 * time.Second
	bulkTimeout     = 10 * time.Second
	xmlRecvBufSize  = 4096
	sectorSizeBytes = 512
)

// Manager drives the Sahara-then-Firehose session over a bound transport.
type Manager struct {
	t          transport.Transport
	memoryName string
}

// New returns a Manager bound to t, using memoryName (e.g. "emmc", "ufs")
// in the Firehose configure handshake.
func New(t transport.Transport, memoryName string) *Manager {
	if memoryName == "" {
		memoryName = "emmc"
	}
	return &Manager{t: t, memoryName: memoryName}
}

// ConnectSahara runs the Sahara Hello/HelloResponse handshake.
func (m *Manager) ConnectSahara(ctx context.Context) error {
	return sahara.Hello(ctx, m.t, saharaTimeout)
}

// SendProgrammer uploads the Firehose programmer binary via Sahara Read
// framing.
func (m *Manager) SendProgrammer(ctx context.Context, programmer []byte) error {
	return sahara.SendProgrammer(ctx, m.t, programmer, saharaTimeout)
}

// FirehoseHandshake sends the configure XML and requires an ACK response.
func (m *Manager) FirehoseHandshake(ctx context.Context) error {
	if err := m.sendXML(ctx, firehose.CreateConfigureXml(m.memoryName)); err != nil {
		return err
	}
	resp, err := m.receiveXML(ctx)
	if err != nil {
		return err
	}
	if !firehose.ParseResponse(resp).Success {
		return protoerr.New(protoerr.KindProtocol, "edl.FirehoseHandshake: configure not acknowledged")
	}
	return nil
}

// ReadPartition sends a <read> request and returns count*512 bytes of
// payload, which must be followed by an ACK response document.
func (m *Manager) ReadPartition(ctx context.Context, offset, count uint64) ([]byte, error) {
	if err := m.sendXML(ctx, firehose.CreateReadXml(offset, count)); err != nil {
		return nil, err
	}
	out := make([]byte, count*sectorSizeBytes)
	n, err := m.t.Receive(ctx, out, bulkTimeout)
	if err != nil {
		return nil, err
	}
	if uint64(n) != uint64(len(out)) {
		return nil, protoerr.New(protoerr.KindTransport, "edl.ReadPartition: short read")
	}
	resp, err := m.receiveXML(ctx)
	if err != nil {
		return nil, err
	}
	if !firehose.ParseResponse(resp).Success {
		return nil, protoerr.New(protoerr.KindProtocol, "edl.ReadPartition: read not acknowledged")
	}
	return out, nil
}

// WritePartition sends a <program> request, the raw payload, then requires
// an ACK response. name is used to derive the on-wire filename attribute.
func (m *Manager) WritePartition(ctx context.Context, name string, offset uint64, data []byte) error {
	count := uint64(len(data)) / sectorSizeBytes
	if err := m.sendXML(ctx, firehose.CreateWriteXml(name, offset, count)); err != nil {
		return err
	}
	n, err := m.t.Send(ctx, data, bulkTimeout)
	if err != nil {
		return err
	}
	if n != len(data) {
		return protoerr.New(protoerr.KindTransport, "edl.WritePartition: short write")
	}
	resp, err := m.receiveXML(ctx)
	if err != nil {
		return err
	}
	if !firehose.ParseResponse(resp).Success {
		return protoerr.New(protoerr.KindProtocol, "edl.WritePartition: program not acknowledged")
	}
	return nil
}

// ErasePartition sends an <erase> request and requires an ACK response.
func (m *Manager) ErasePartition(ctx context.Context, name string) error {
	if err := m.sendXML(ctx, firehose.CreateEraseXml(name)); err != nil {
		return err
	}
	resp, err := m.receiveXML(ctx)
	if err != nil {
		return err
	}
	if !firehose.ParseResponse(resp).Success {
		return protoerr.New(protoerr.KindProtocol, "edl.ErasePartition: erase not acknowledged")
	}
	return nil
}

func (m *Manager) sendXML(ctx context.Context, xml string) error {
	n, err := m.t.Send(ctx, []byte(xml), xmlSendTimeout)
	if err != nil {
		return err
	}
	if n <= 0 {
		return protoerr.New(protoerr.KindProtocol, "edl.sendXML: empty write")
	}
	return nil
}

func (m *Manager) receiveXML(ctx context.Context) (string, error) {
	buf := make([]byte, xmlRecvBufSize)
	n, err := m.t.Receive(ctx, buf, xmlRecvTimeout)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
