package r308

import "fmt"

// Status is the confirmation code of an acknowledgement.
type Status byte

// Confirmation codes.
const (
	StatusOK                 Status = 0x00
	StatusPacketError        Status = 0x01
	StatusNoFinger           Status = 0x02
	StatusCaptureFailed      Status = 0x03
	StatusImageMessy         Status = 0x06
	StatusFewFeatures        Status = 0x07
	StatusNotMatched         Status = 0x08
	StatusNotFound           Status = 0x09
	StatusMergeFailed        Status = 0x0A
	StatusSlotOutOfRange     Status = 0x0B
	StatusReadTemplateFailed Status = 0x0C
	StatusDeleteFailed       Status = 0x10
	StatusClearFailed        Status = 0x11
	StatusWrongPassword      Status = 0x13
	StatusNoImage            Status = 0x15
	StatusFlashError         Status = 0x18

	// StatusNone is returned alongside a link error. The sensor never sends it.
	StatusNone Status = 0xFF
)

var statusNames = map[Status]string{
	StatusOK:                 "ok",
	StatusPacketError:        "packet error",
	StatusNoFinger:           "no finger",
	StatusCaptureFailed:      "capture failed",
	StatusImageMessy:         "image messy",
	StatusFewFeatures:        "few features",
	StatusNotMatched:         "not matched",
	StatusNotFound:           "not found",
	StatusMergeFailed:        "merge failed",
	StatusSlotOutOfRange:     "slot out of range",
	StatusReadTemplateFailed: "read template failed",
	StatusDeleteFailed:       "delete failed",
	StatusClearFailed:        "clear failed",
	StatusWrongPassword:      "wrong password",
	StatusNoImage:            "no image",
	StatusFlashError:         "flash error",
	StatusNone:               "none",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(0x%02X)", byte(s))
}

// Known tells whether s is one of the defined confirmation codes.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok && s != StatusNone
}
