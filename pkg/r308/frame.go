package r308

import (
	"encoding/binary"
	"io"
)

const (
	// HeaderTag starts every frame.
	HeaderTag uint16 = 0xEF01
	// BroadcastAddress is the factory default module address.
	BroadcastAddress uint32 = 0xFFFFFFFF
	// MaxPayload is the largest payload a sensor sends in one frame.
	MaxPayload = 256

	headerSize = 9 // tag, address, pid, length
	// length covers code, payload and checksum.
	minLength = 3
	maxLength = MaxPayload + minLength
)

// PID is the package identifier.
type PID byte

// Package identifiers.
const (
	PIDCommand PID = 0x01
	PIDData    PID = 0x02
	PIDAck     PID = 0x07
	PIDEnd     PID = 0x08
)

// Valid tells whether the identifier is defined by the protocol.
func (p PID) Valid() bool {
	switch p {
	case PIDCommand, PIDData, PIDAck, PIDEnd:
		return true
	}
	return false
}

// Frame is a decoded packet.
type Frame struct {
	Address uint32
	PID     PID
	// Code is the instruction of a command or the confirmation code
	// of an acknowledgement.
	Code    byte
	Payload []byte
}

// Len returns the encoded size in bytes.
func (f *Frame) Len() int {
	return headerSize + minLength + len(f.Payload)
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() []byte {
	b := make([]byte, f.Len())
	binary.BigEndian.PutUint16(b, HeaderTag)
	binary.BigEndian.PutUint32(b[2:], f.Address)
	b[6] = byte(f.PID)
	binary.BigEndian.PutUint16(b[7:], uint16(len(f.Payload)+minLength))
	b[9] = f.Code
	copy(b[10:], f.Payload)
	sumAt := len(b) - 2
	binary.BigEndian.PutUint16(b[sumAt:], Checksum(b[6:sumAt]))
	return b
}

// WriteTo writes encoded bytes in a single Write.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Checksum is the 16-bit additive sum of b.
func Checksum(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}

// Encode builds a command frame for the default address.
func Encode(op Opcode, payload []byte) []byte {
	f := &Frame{Address: BroadcastAddress, PID: PIDCommand, Code: byte(op), Payload: payload}
	return f.Bytes()
}

// Decode validates and decodes exactly one frame.
// Any defect is reported as *FormatError.
func Decode(b []byte) (*Frame, error) {
	if len(b) < headerSize+minLength {
		return nil, formatErrorf("short frame: %d bytes", len(b))
	}
	if tag := binary.BigEndian.Uint16(b); tag != HeaderTag {
		return nil, formatErrorf("bad header tag %04X", tag)
	}
	addr := binary.BigEndian.Uint32(b[2:])
	if addr != BroadcastAddress {
		return nil, formatErrorf("bad address %08X", addr)
	}
	pid := PID(b[6])
	if !pid.Valid() {
		return nil, formatErrorf("bad package identifier %02X", b[6])
	}
	length := int(binary.BigEndian.Uint16(b[7:]))
	if length < minLength || length > maxLength {
		return nil, formatErrorf("bad length %d", length)
	}
	switch total := headerSize + length; {
	case len(b) < total:
		return nil, formatErrorf("short frame: %d of %d bytes", len(b), total)
	case len(b) > total:
		return nil, formatErrorf("%d trailing bytes", len(b)-total)
	}
	sumAt := len(b) - 2
	if want, got := Checksum(b[6:sumAt]), binary.BigEndian.Uint16(b[sumAt:]); want != got {
		return nil, formatErrorf("checksum %04X, expect %04X", got, want)
	}
	f := &Frame{Address: addr, PID: pid, Code: b[9]}
	if sumAt > 10 {
		f.Payload = append([]byte(nil), b[10:sumAt]...)
	}
	return f, nil
}
