// Package access enrolls and authenticates locker users by fingerprint.
//
// Each role owns a slot range of the sensor library. Enrollment stores
// the template at the role's next free slot and only then advances it.
// Authentication searches the role's range and nothing else.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/r308"
	"github.com/robotalks/multilocker/pkg/roles"
)

// NoSlot is the slot of a user without a match.
const NoSlot uint16 = 0xFFFF

// User is an identified locker user.
type User struct {
	Role roles.Role
	Slot uint16
}

// Nobody is the user returned when no match is found.
var Nobody = User{Role: roles.Unassigned, Slot: NoSlot}

// Matched tells whether the user was identified.
func (u User) Matched() bool {
	return u.Slot != NoSlot && u.Role != roles.Unassigned
}

func (u User) String() string {
	if !u.Matched() {
		return "nobody"
	}
	return fmt.Sprintf("%s#%d", u.Role, u.Slot)
}

var (
	// ErrNoMatch indicates the finger matches no template in the searched range.
	ErrNoMatch = errors.New("no matching fingerprint")
	// ErrCapacityExhausted indicates the role range has no free slot.
	ErrCapacityExhausted = errors.New("no free slot left")
	// ErrTimeout indicates the finger didn't show up or leave in time.
	ErrTimeout = errors.New("timed out waiting for finger")
	// ErrSlotUnassigned indicates a slot outside every role range.
	ErrSlotUnassigned = errors.New("slot not assigned to any role")
)

// StatusError reports a step the sensor refused.
type StatusError struct {
	Op     string
	Status r308.Status
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Prompt is an instruction for the person at the sensor.
type Prompt int

// Prompts.
const (
	PlaceFinger Prompt = iota
	RemoveFinger
	PlaceAgain
)

func (p Prompt) String() string {
	switch p {
	case PlaceFinger:
		return "place finger"
	case RemoveFinger:
		return "remove finger"
	case PlaceAgain:
		return "place the same finger again"
	}
	return fmt.Sprintf("prompt(%d)", int(p))
}

// Prompter renders prompts, e.g. on a display.
type Prompter interface {
	Prompt(Prompt)
}

// PromptFunc is the func form of Prompter.
type PromptFunc func(Prompt)

// Prompt implements Prompter.
func (f PromptFunc) Prompt(p Prompt) {
	f(p)
}

// Sensor is the command set of the fingerprint sensor, see r308.Driver.
type Sensor interface {
	Handshake() (r308.Status, error)
	CaptureImage() (r308.Status, error)
	ExtractToBuffer(r308.BufferID) (r308.Status, error)
	MergeTemplate() (r308.Status, error)
	SaveTemplate(buf r308.BufferID, slot uint16) (r308.Status, error)
	Search(buf r308.BufferID, start, count uint16) (r308.Match, r308.Status, error)
	DeleteTemplates(start, count uint16) (r308.Status, error)
	ClearAll() (r308.Status, error)
	TemplateCount() (uint16, r308.Status, error)
}

// Linker is the interface the locker UI drives.
type Linker interface {
	Init(ctx context.Context) bool
	GetUser(ctx context.Context) User
	Auth(ctx context.Context, user *User, role roles.Role) bool
	SetupMode() *Setup
	RegisterUser(ctx context.Context, role roles.Role) bool
	DeleteUser(ctx context.Context, user User) bool
}

// Options tunes a Fingerprint.
type Options struct {
	// Attempts is the number of captures while waiting for a finger
	// to be placed or removed.
	Attempts int
	// PollInterval separates two captures.
	PollInterval time.Duration
	// LinkRetries is the number of times a command is resent after a link failure.
	LinkRetries int
	Clock       framework.Clock
	Prompter    Prompter
	Events      events.Sink
}

// Option customizes Options.
type Option func(*Options)

// Default option values.
const (
	DefaultAttempts     = 50
	DefaultPollInterval = 100 * time.Millisecond
	DefaultLinkRetries  = 2
)

func defaultOptions() Options {
	return Options{
		Attempts:     DefaultAttempts,
		PollInterval: DefaultPollInterval,
		LinkRetries:  DefaultLinkRetries,
		Clock:        framework.SystemClock,
		Prompter:     PromptFunc(func(Prompt) {}),
		Events:       events.Discard,
	}
}

// WithAttempts sets Options.Attempts.
func WithAttempts(n int) Option {
	return func(o *Options) { o.Attempts = n }
}

// WithPollInterval sets Options.PollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

// WithLinkRetries sets Options.LinkRetries.
func WithLinkRetries(n int) Option {
	return func(o *Options) { o.LinkRetries = n }
}

// WithClock sets Options.Clock.
func WithClock(c framework.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// WithPrompter sets Options.Prompter.
func WithPrompter(p Prompter) Option {
	return func(o *Options) { o.Prompter = p }
}

// WithEvents sets Options.Events.
func WithEvents(s events.Sink) Option {
	return func(o *Options) { o.Events = s }
}
