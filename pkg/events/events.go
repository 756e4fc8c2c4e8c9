// Package events reports what happened at the locker.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/roles"
)

// Type is the kind of an event.
type Type string

// Event types.
const (
	Enrolled Type = "enrolled"
	Deleted  Type = "deleted"
	Cleared  Type = "cleared"
	Granted  Type = "granted"
	Denied   Type = "denied"
)

// Types lists all event types.
var Types = []Type{Enrolled, Deleted, Cleared, Granted, Denied}

// Event is a single occurrence.
type Event struct {
	ID    string
	Type  Type
	Role  roles.Role
	Slot  uint16
	Score uint16
	Time  time.Time
}

// New creates an event with a fresh ID.
func New(t Type, role roles.Role, slot uint16, at time.Time) Event {
	return Event{
		ID:   uuid.New().String(),
		Type: t,
		Role: role,
		Slot: slot,
		Time: at,
	}
}

// WithScore sets the match score.
func (e Event) WithScore(score uint16) Event {
	e.Score = score
	return e
}

// Sink receives events.
type Sink interface {
	Emit(Event) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(Event) error

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) error {
	return f(e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) error { return nil })

// Mux fans an event out to all sinks.
type Mux []Sink

// Emit implements Sink. Every sink receives the event even if some fail.
func (m Mux) Emit(e Event) error {
	errs := &framework.AggregatedError{}
	for _, s := range m {
		errs.Add(s.Emit(e))
	}
	return errs.Aggregate()
}
