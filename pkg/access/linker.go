package access

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/r308"
	"github.com/robotalks/multilocker/pkg/roles"
)

var _ Linker = (*Fingerprint)(nil)

// Init handshakes with the sensor and reports whether it is ready.
func (f *Fingerprint) Init(ctx context.Context) bool {
	if err := f.Handshake(ctx); err != nil {
		glog.Errorf("sensor init: %v", err)
		return false
	}
	if n, err := f.TemplateCount(ctx); err == nil {
		glog.Infof("sensor ready, %d templates", n)
	}
	return true
}

// GetUser identifies the finger on the sensor, Nobody if unknown.
func (f *Fingerprint) GetUser(ctx context.Context) User {
	user, err := f.Identify(ctx)
	if err != nil {
		glog.Warningf("get user: %v", err)
		return Nobody
	}
	return user
}

// Auth authenticates the finger against role and stores the result
// in user when granted.
func (f *Fingerprint) Auth(ctx context.Context, user *User, role roles.Role) bool {
	u, err := f.Authenticate(ctx, role)
	if err != nil {
		glog.Warningf("auth %s: %v", role, err)
		return false
	}
	if user != nil {
		*user = u
	}
	return true
}

// RegisterUser enrolls a new finger for role.
func (f *Fingerprint) RegisterUser(ctx context.Context, role roles.Role) bool {
	if _, err := f.Register(ctx, role); err != nil {
		glog.Errorf("register %s: %v", role, err)
		return false
	}
	return true
}

// DeleteUser removes the template of user.
func (f *Fingerprint) DeleteUser(ctx context.Context, user User) bool {
	if err := f.Delete(ctx, user); err != nil {
		glog.Errorf("delete %s: %v", user, err)
		return false
	}
	return true
}

// SetupMode returns the maintenance operations.
func (f *Fingerprint) SetupMode() *Setup {
	return &Setup{f: f}
}

// Setup exposes maintenance operations with full errors.
type Setup struct {
	f *Fingerprint
}

// RegisterUser enrolls a new finger for role.
func (s *Setup) RegisterUser(ctx context.Context, role roles.Role) (User, error) {
	return s.f.Register(ctx, role)
}

// DeleteUser removes the template at user.Slot.
func (s *Setup) DeleteUser(ctx context.Context, user User) error {
	return s.f.Delete(ctx, user)
}

// DeleteSlot removes the template at slot.
func (s *Setup) DeleteSlot(ctx context.Context, slot uint16) error {
	return s.f.Delete(ctx, User{Role: roles.Unassigned, Slot: slot})
}

// ClearAll removes every template. Locations are kept.
func (s *Setup) ClearAll(ctx context.Context) error {
	return s.f.Clear(ctx)
}

// Locations returns the next free slot of every role.
func (s *Setup) Locations() map[roles.Role]uint16 {
	return s.f.Locations()
}

// TemplateCount returns the number of stored templates.
func (s *Setup) TemplateCount(ctx context.Context) (uint16, error) {
	return s.f.TemplateCount(ctx)
}

// Identify finds the user of the finger on the sensor.
func (s *Setup) Identify(ctx context.Context) (User, error) {
	return s.f.Identify(ctx)
}

// Table returns the role table.
func (s *Setup) Table() *roles.Table {
	return s.f.Table()
}

// IsLinkError tells whether err comes from the serial link.
func IsLinkError(err error) bool {
	return r308.IsLinkError(err)
}
