package r308

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/framework"
)

const (
	// DefaultTimeout bounds the wait for one response.
	DefaultTimeout = time.Second
	// DefaultPassword is the factory password.
	DefaultPassword uint32 = 0

	idlePause = 5 * time.Millisecond
)

// BufferID selects one of the two char buffers.
type BufferID byte

// Char buffers.
const (
	Buffer1 BufferID = 1
	Buffer2 BufferID = 2
)

// Valid tells whether the buffer exists.
func (b BufferID) Valid() bool {
	return b == Buffer1 || b == Buffer2
}

// Match is the result of a successful search.
type Match struct {
	Slot  uint16
	Score uint16
}

// Flusher is implemented by ports able to drop stale input.
type Flusher interface {
	Flush() error
}

// Observer is notified after every exchange.
type Observer interface {
	CommandDone(name string, st Status, err error, d time.Duration)
}

// Driver issues commands to the sensor, one exchange at a time.
// It never retries: a failed exchange is reported as a link error and
// the caller decides what to do. Driver is not safe for concurrent use.
type Driver struct {
	Port     io.ReadWriter
	Timeout  time.Duration
	Password uint32
	Clock    framework.Clock
	Observer Observer

	parser Parser
}

// NewDriver creates a Driver with default timeout and password.
func NewDriver(port io.ReadWriter) *Driver {
	return &Driver{
		Port:     port,
		Timeout:  DefaultTimeout,
		Password: DefaultPassword,
	}
}

// Handshake verifies the password. The sensor is ready iff the status is OK.
func (d *Driver) Handshake() (Status, error) {
	st, _, err := d.exec(CmdVerifyPassword, d.Password)
	return st, err
}

// CaptureImage scans the finger into the image buffer.
func (d *Driver) CaptureImage() (Status, error) {
	st, _, err := d.exec(CmdCaptureImage)
	return st, err
}

// ExtractToBuffer generates a char file from the image into buf.
func (d *Driver) ExtractToBuffer(buf BufferID) (Status, error) {
	if !buf.Valid() {
		return StatusNone, ErrInvalidBuffer
	}
	st, _, err := d.exec(CmdExtract, uint32(buf))
	return st, err
}

// MergeTemplate combines both char buffers into a model.
func (d *Driver) MergeTemplate() (Status, error) {
	st, _, err := d.exec(CmdMerge)
	return st, err
}

// SaveTemplate stores the model in buf into slot.
func (d *Driver) SaveTemplate(buf BufferID, slot uint16) (Status, error) {
	if !buf.Valid() {
		return StatusNone, ErrInvalidBuffer
	}
	st, _, err := d.exec(CmdSave, uint32(buf), uint32(slot))
	return st, err
}

// Search looks for buf in slots [start, start+count).
func (d *Driver) Search(buf BufferID, start, count uint16) (Match, Status, error) {
	if !buf.Valid() {
		return Match{}, StatusNone, ErrInvalidBuffer
	}
	st, data, err := d.exec(CmdSearch, uint32(buf), uint32(start), uint32(count))
	if err != nil || st != StatusOK {
		return Match{}, st, err
	}
	if len(data) < 4 {
		return Match{}, StatusNone, formatErrorf("search reply carries %d bytes", len(data))
	}
	return Match{
		Slot:  binary.BigEndian.Uint16(data),
		Score: binary.BigEndian.Uint16(data[2:]),
	}, st, nil
}

// DeleteTemplates removes slots [start, start+count).
func (d *Driver) DeleteTemplates(start, count uint16) (Status, error) {
	st, _, err := d.exec(CmdDelete, uint32(start), uint32(count))
	return st, err
}

// ClearAll removes every template.
func (d *Driver) ClearAll() (Status, error) {
	st, _, err := d.exec(CmdClear)
	return st, err
}

// TemplateCount returns the number of stored templates.
func (d *Driver) TemplateCount() (uint16, Status, error) {
	st, data, err := d.exec(CmdTemplateCount)
	if err != nil || st != StatusOK {
		return 0, st, err
	}
	if len(data) < 2 {
		return 0, StatusNone, formatErrorf("template count reply carries %d bytes", len(data))
	}
	return binary.BigEndian.Uint16(data), st, nil
}

func (d *Driver) exec(cmd Command, args ...uint32) (Status, []byte, error) {
	clock := framework.ClockOr(d.Clock)
	start := clock.Now()
	st, data, err := d.roundTrip(clock, cmd, args)
	if err != nil {
		st = StatusNone
		glog.Warningf("r308 %s: %v", cmd.Name, err)
	} else if glog.V(2) {
		glog.Infof("r308 %s: %s", cmd.Name, st)
	}
	if o := d.Observer; o != nil {
		o.CommandDone(cmd.Name, st, err, clock.Now().Sub(start))
	}
	return st, data, err
}

func (d *Driver) roundTrip(clock framework.Clock, cmd Command, args []uint32) (Status, []byte, error) {
	req, err := cmd.Encode(args...)
	if err != nil {
		return StatusNone, nil, err
	}
	if f, ok := d.Port.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return StatusNone, nil, &IOError{Op: "flush", Err: err}
		}
	}
	if glog.V(3) {
		glog.Infof("r308 > % X", req)
	}
	if _, err := d.Port.Write(req); err != nil {
		return StatusNone, nil, &IOError{Op: "write", Err: err}
	}
	raw, err := d.readFrame(clock)
	if err != nil {
		return StatusNone, nil, err
	}
	if glog.V(3) {
		glog.Infof("r308 < % X", raw)
	}
	resp, err := Decode(raw)
	if err != nil {
		return StatusNone, nil, err
	}
	if resp.PID != PIDAck {
		return StatusNone, nil, formatErrorf("package identifier %02X, expect ack", byte(resp.PID))
	}
	return Status(resp.Code), resp.Payload, nil
}

// readFrame reads until a complete frame or the deadline.
// A Read returning no byte (0 with nil, io.EOF or a timeout error) is an
// idle tick, as seen on ports configured with a read timeout.
func (d *Driver) readFrame(clock framework.Clock) ([]byte, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := clock.Now().Add(timeout)
	d.parser.Reset()
	buf := make([]byte, 1)
	for {
		if !clock.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		n, err := d.Port.Read(buf)
		if n > 0 {
			if frame := d.parser.Parse(buf[0]); frame != nil {
				return frame, nil
			}
			continue
		}
		if err != nil && err != io.EOF && !os.IsTimeout(err) {
			return nil, &IOError{Op: "read", Err: err}
		}
		<-clock.After(idlePause)
	}
}
