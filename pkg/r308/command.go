package r308

import "fmt"

// Opcode is the instruction code of a command.
type Opcode byte

// Instruction codes.
const (
	OpCaptureImage   Opcode = 0x01
	OpExtract        Opcode = 0x02
	OpSearch         Opcode = 0x04
	OpMerge          Opcode = 0x05
	OpSave           Opcode = 0x06
	OpDelete         Opcode = 0x0C
	OpClear          Opcode = 0x0D
	OpVerifyPassword Opcode = 0x13
	OpTemplateCount  Opcode = 0x1D
)

// Arg is the width in bytes of a command argument.
type Arg int

// Argument widths.
const (
	ArgByte Arg = 1
	ArgWord Arg = 2
	ArgLong Arg = 4
)

func (a Arg) max() uint64 {
	return 1<<(8*uint(a)) - 1
}

// Command describes an instruction and the shape of its payload.
type Command struct {
	Name   string
	Opcode Opcode
	Args   []Arg
}

// Commands used by the driver.
var (
	CmdVerifyPassword = Command{Name: "verify-password", Opcode: OpVerifyPassword, Args: []Arg{ArgLong}}
	CmdCaptureImage   = Command{Name: "capture-image", Opcode: OpCaptureImage}
	CmdExtract        = Command{Name: "extract", Opcode: OpExtract, Args: []Arg{ArgByte}}
	CmdMerge          = Command{Name: "merge", Opcode: OpMerge}
	CmdSave           = Command{Name: "save", Opcode: OpSave, Args: []Arg{ArgByte, ArgWord}}
	CmdSearch         = Command{Name: "search", Opcode: OpSearch, Args: []Arg{ArgByte, ArgWord, ArgWord}}
	CmdDelete         = Command{Name: "delete", Opcode: OpDelete, Args: []Arg{ArgWord, ArgWord}}
	CmdClear          = Command{Name: "clear", Opcode: OpClear}
	CmdTemplateCount  = Command{Name: "template-count", Opcode: OpTemplateCount}
)

// Commands lists all known commands.
var Commands = []Command{
	CmdVerifyPassword,
	CmdCaptureImage,
	CmdExtract,
	CmdMerge,
	CmdSave,
	CmdSearch,
	CmdDelete,
	CmdClear,
	CmdTemplateCount,
}

// LookupCommand finds the command of an opcode.
func LookupCommand(op Opcode) (Command, bool) {
	for _, cmd := range Commands {
		if cmd.Opcode == op {
			return cmd, true
		}
	}
	return Command{}, false
}

// PayloadSize is the payload length implied by Args.
func (c Command) PayloadSize() (n int) {
	for _, a := range c.Args {
		n += int(a)
	}
	return
}

// Payload packs args big endian according to Args.
func (c Command) Payload(args ...uint32) ([]byte, error) {
	if len(args) != len(c.Args) {
		return nil, fmt.Errorf("%w: %s expects %d args, got %d", ErrInvalidArgument, c.Name, len(c.Args), len(args))
	}
	b := make([]byte, 0, c.PayloadSize())
	for i, a := range c.Args {
		v := args[i]
		if uint64(v) > a.max() {
			return nil, fmt.Errorf("%w: %s arg %d (%d) exceeds %d bytes", ErrInvalidArgument, c.Name, i, v, a)
		}
		for n := int(a) - 1; n >= 0; n-- {
			b = append(b, byte(v>>(8*uint(n))))
		}
	}
	return b, nil
}

// ParseArgs unpacks a payload according to Args.
func (c Command) ParseArgs(payload []byte) ([]uint32, error) {
	if len(payload) != c.PayloadSize() {
		return nil, fmt.Errorf("%w: %s expects %d payload bytes, got %d", ErrInvalidArgument, c.Name, c.PayloadSize(), len(payload))
	}
	args := make([]uint32, 0, len(c.Args))
	for _, a := range c.Args {
		var v uint32
		for _, b := range payload[:a] {
			v = v<<8 | uint32(b)
		}
		args = append(args, v)
		payload = payload[a:]
	}
	return args, nil
}

// Encode builds the command frame.
func (c Command) Encode(args ...uint32) ([]byte, error) {
	payload, err := c.Payload(args...)
	if err != nil {
		return nil, err
	}
	return Encode(c.Opcode, payload), nil
}
