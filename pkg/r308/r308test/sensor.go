// Package r308test provides a simulated R30x sensor speaking the wire
// protocol, for tests of code built on r308.Driver.
package r308test

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/robotalks/multilocker/pkg/r308"
)

// Finger identifies a physical finger. NoFinger is an empty window.
type Finger int

// NoFinger means nothing is on the sensor.
const NoFinger Finger = 0

// DefaultCapacity is the slot count of the simulated library.
const DefaultCapacity = 500

// MatchScore is the score reported for a matching template.
const MatchScore uint16 = 120

// Sensor implements io.ReadWriter like a serial port wired to a sensor.
// Each CaptureImage consumes one entry of the touch script, an empty
// script reads as NoFinger.
type Sensor struct {
	Password uint32
	Capacity int

	lock      sync.Mutex
	parser    r308.Parser
	out       []byte
	touches   []Finger
	image     Finger
	buffers   [3]Finger
	templates map[uint16]Finger
	requests  []r308.Frame
	forced    map[r308.Opcode][]r308.Status
	silenced  map[r308.Opcode]int
	corrupted map[r308.Opcode]int
	matches   []r308.Match
}

// NewSensor creates an empty sensor with the default password.
func NewSensor() *Sensor {
	return &Sensor{
		Password:  r308.DefaultPassword,
		Capacity:  DefaultCapacity,
		templates: make(map[uint16]Finger),
		forced:    make(map[r308.Opcode][]r308.Status),
		silenced:  make(map[r308.Opcode]int),
		corrupted: make(map[r308.Opcode]int),
	}
}

// Press queues fingers on the sensor, one per capture.
func (s *Sensor) Press(fingers ...Finger) *Sensor {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.touches = append(s.touches, fingers...)
	return s
}

// Lift queues n captures seeing no finger.
func (s *Sensor) Lift(n int) *Sensor {
	for i := 0; i < n; i++ {
		s.Press(NoFinger)
	}
	return s
}

// Store puts a template directly into the library.
func (s *Sensor) Store(slot uint16, f Finger) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.templates[slot] = f
}

// Template returns the finger stored in slot.
func (s *Sensor) Template(slot uint16) (Finger, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	f, ok := s.templates[slot]
	return f, ok
}

// TemplateCount returns the number of stored templates.
func (s *Sensor) TemplateCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.templates)
}

// Fail forces the next reply of op to carry st instead of the simulated result.
func (s *Sensor) Fail(op r308.Opcode, st r308.Status) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.forced[op] = append(s.forced[op], st)
}

// Silence drops the next n replies of op.
func (s *Sensor) Silence(op r308.Opcode, n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.silenced[op] += n
}

// Corrupt breaks the checksum of the next n replies of op.
func (s *Sensor) Corrupt(op r308.Opcode, n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.corrupted[op] += n
}

// ForceMatch makes the next search report m regardless of the library.
func (s *Sensor) ForceMatch(m r308.Match) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.matches = append(s.matches, m)
}

// Requests returns all command frames received so far.
func (s *Sensor) Requests() []r308.Frame {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]r308.Frame(nil), s.requests...)
}

// RequestsOf returns the received command frames of op.
func (s *Sensor) RequestsOf(op r308.Opcode) (frames []r308.Frame) {
	for _, f := range s.Requests() {
		if r308.Opcode(f.Code) == op {
			frames = append(frames, f)
		}
	}
	return
}

// Read implements io.Reader. Without pending reply it returns 0, io.EOF.
func (s *Sensor) Read(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.out) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Sensor) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, b := range p {
		if raw := s.parser.Parse(b); raw != nil {
			s.receive(raw)
		}
	}
	return len(p), nil
}

// Flush drops unread replies.
func (s *Sensor) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.out = nil
	return nil
}

func (s *Sensor) receive(raw []byte) {
	req, err := r308.Decode(raw)
	if err != nil || req.PID != r308.PIDCommand {
		s.reply(r308.Opcode(0), r308.StatusPacketError, nil)
		return
	}
	s.requests = append(s.requests, *req)
	op := r308.Opcode(req.Code)
	if n := s.silenced[op]; n > 0 {
		s.silenced[op] = n - 1
		return
	}
	st, data := s.execute(op, req.Payload)
	if forced := s.forced[op]; len(forced) > 0 {
		st, data, s.forced[op] = forced[0], nil, forced[1:]
	}
	s.reply(op, st, data)
}

func (s *Sensor) reply(op r308.Opcode, st r308.Status, data []byte) {
	f := &r308.Frame{Address: r308.BroadcastAddress, PID: r308.PIDAck, Code: byte(st), Payload: data}
	b := f.Bytes()
	if n := s.corrupted[op]; n > 0 {
		s.corrupted[op] = n - 1
		b[len(b)-1] ^= 0xFF
	}
	s.out = append(s.out, b...)
}

func (s *Sensor) execute(op r308.Opcode, payload []byte) (r308.Status, []byte) {
	cmd, ok := r308.LookupCommand(op)
	if !ok {
		return r308.StatusPacketError, nil
	}
	args, err := cmd.ParseArgs(payload)
	if err != nil {
		return r308.StatusPacketError, nil
	}
	switch op {
	case r308.OpVerifyPassword:
		if args[0] != s.Password {
			return r308.StatusWrongPassword, nil
		}
	case r308.OpCaptureImage:
		s.image = NoFinger
		if len(s.touches) > 0 {
			s.image, s.touches = s.touches[0], s.touches[1:]
		}
		if s.image == NoFinger {
			return r308.StatusNoFinger, nil
		}
	case r308.OpExtract:
		buf := r308.BufferID(args[0])
		if !buf.Valid() {
			return r308.StatusPacketError, nil
		}
		if s.image == NoFinger {
			return r308.StatusNoImage, nil
		}
		s.buffers[buf] = s.image
	case r308.OpMerge:
		if s.buffers[1] == NoFinger || s.buffers[1] != s.buffers[2] {
			return r308.StatusMergeFailed, nil
		}
	case r308.OpSave:
		buf, slot := r308.BufferID(args[0]), uint16(args[1])
		if !buf.Valid() {
			return r308.StatusPacketError, nil
		}
		if int(slot) >= s.Capacity {
			return r308.StatusSlotOutOfRange, nil
		}
		s.templates[slot] = s.buffers[buf]
	case r308.OpSearch:
		return s.search(r308.BufferID(args[0]), uint16(args[1]), uint16(args[2]))
	case r308.OpDelete:
		start, count := int(args[0]), int(args[1])
		if start+count > s.Capacity {
			return r308.StatusDeleteFailed, nil
		}
		for slot := start; slot < start+count; slot++ {
			delete(s.templates, uint16(slot))
		}
	case r308.OpClear:
		s.templates = make(map[uint16]Finger)
	case r308.OpTemplateCount:
		data := make([]byte, 2)
		binary.BigEndian.PutUint16(data, uint16(len(s.templates)))
		return r308.StatusOK, data
	}
	return r308.StatusOK, nil
}

func (s *Sensor) search(buf r308.BufferID, start, count uint16) (r308.Status, []byte) {
	if !buf.Valid() {
		return r308.StatusPacketError, nil
	}
	m, found := r308.Match{}, false
	if len(s.matches) > 0 {
		m, s.matches, found = s.matches[0], s.matches[1:], true
	} else if f := s.buffers[buf]; f != NoFinger {
		for slot := int(start); slot < int(start)+int(count) && slot < s.Capacity; slot++ {
			if s.templates[uint16(slot)] == f {
				m, found = r308.Match{Slot: uint16(slot), Score: MatchScore}, true
				break
			}
		}
	}
	if !found {
		return r308.StatusNotFound, nil
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data, m.Slot)
	binary.BigEndian.PutUint16(data[2:], m.Score)
	return r308.StatusOK, data
}
