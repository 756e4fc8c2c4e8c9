package r308

import "encoding/binary"

// Parser assembles frames from a byte stream.
// It hunts for the header tag, so garbage between frames is skipped.
// Frame contents are not validated here, use Decode.
type Parser struct {
	state  parseState
	buf    []byte
	length int
}

type parseState int

const (
	tagHigh = byte(HeaderTag >> 8)
	tagLow  = byte(HeaderTag & 0xFF)
)

const (
	stateTag0   parseState = iota // waiting for EF
	stateTag1                     // waiting for 01
	stateHeader                   // address, pid, length
	stateBody                     // code, payload, checksum
)

// Reset drops any partial frame.
func (p *Parser) Reset() {
	p.state, p.buf, p.length = stateTag0, p.buf[:0], 0
}

// Receiving tells whether a frame is partially received.
func (p *Parser) Receiving() bool {
	return p.state != stateTag0
}

// Parse consumes one byte and returns the raw frame once complete.
func (p *Parser) Parse(b byte) []byte {
	switch p.state {
	case stateTag0:
		if b == tagHigh {
			p.buf = append(p.buf[:0], b)
			p.state = stateTag1
		}
	case stateTag1:
		switch b {
		case tagLow:
			p.buf = append(p.buf, b)
			p.state = stateHeader
		case tagHigh:
			// EF EF 01: the second EF may start the frame.
		default:
			p.Reset()
		}
	case stateHeader:
		p.buf = append(p.buf, b)
		if len(p.buf) < headerSize {
			break
		}
		p.length = int(binary.BigEndian.Uint16(p.buf[7:]))
		if p.length < minLength || p.length > maxLength {
			p.Reset()
			break
		}
		p.state = stateBody
	case stateBody:
		p.buf = append(p.buf, b)
		if len(p.buf) >= headerSize+p.length {
			frame := append([]byte(nil), p.buf...)
			p.Reset()
			return frame
		}
	}
	return nil
}
