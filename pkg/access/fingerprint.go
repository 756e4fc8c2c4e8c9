package access

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/r308"
	"github.com/robotalks/multilocker/pkg/roles"
	"github.com/robotalks/multilocker/pkg/store"
)

// Fingerprint runs enrollment and authentication against the sensor.
// Public operations are serialized, one sensor exchange at a time.
type Fingerprint struct {
	sensor Sensor
	table  *roles.Table
	locs   *store.Locations
	opts   Options
	lock   sync.Mutex
}

// New creates a Fingerprint. locs must be loaded with the same table.
func New(sensor Sensor, table *roles.Table, locs *store.Locations, opts ...Option) *Fingerprint {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.Clock = framework.ClockOr(o.Clock)
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.LinkRetries < 0 {
		o.LinkRetries = 0
	}
	return &Fingerprint{sensor: sensor, table: table, locs: locs, opts: o}
}

// Table returns the role table.
func (f *Fingerprint) Table() *roles.Table {
	return f.table
}

// Handshake verifies the sensor password.
func (f *Fingerprint) Handshake(ctx context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.expect(ctx, "handshake", f.sensor.Handshake)
}

// Register enrolls a new finger for role at the role's next free slot.
// The location advances only after the sensor stored the template.
func (f *Fingerprint) Register(ctx context.Context, role roles.Role) (User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.register(ctx, role)
}

func (f *Fingerprint) register(ctx context.Context, role roles.Role) (User, error) {
	r, ok := f.table.RangeOf(role)
	if !ok {
		return Nobody, fmt.Errorf("%w: %s", roles.ErrUnknownRole, role)
	}
	slot, err := f.locs.Read(role)
	if err != nil {
		return Nobody, err
	}
	if slot > r.Max {
		return Nobody, fmt.Errorf("%s %s: %w", role, r, ErrCapacityExhausted)
	}

	f.opts.Prompter.Prompt(PlaceFinger)
	if err := f.capture(ctx, "capture first image"); err != nil {
		return Nobody, err
	}
	if err := f.extract(ctx, r308.Buffer1); err != nil {
		return Nobody, err
	}
	f.opts.Prompter.Prompt(RemoveFinger)
	if err := f.waitRemoved(ctx); err != nil {
		return Nobody, err
	}
	f.opts.Prompter.Prompt(PlaceAgain)
	if err := f.capture(ctx, "capture second image"); err != nil {
		return Nobody, err
	}
	if err := f.extract(ctx, r308.Buffer2); err != nil {
		return Nobody, err
	}
	if err := f.expect(ctx, "merge", f.sensor.MergeTemplate); err != nil {
		return Nobody, err
	}
	if err := f.expect(ctx, "save", func() (r308.Status, error) {
		return f.sensor.SaveTemplate(r308.Buffer1, slot)
	}); err != nil {
		return Nobody, err
	}
	if err := f.locs.Write(role, slot+1); err != nil {
		// Left in place, the template would be overwritten by the next enrollment.
		if st, derr := f.sensor.DeleteTemplates(slot, 1); derr != nil || st != r308.StatusOK {
			glog.Errorf("slot %d stored but location not persisted, rollback failed: %s %v", slot, st, derr)
		}
		return Nobody, err
	}
	user := User{Role: role, Slot: slot}
	glog.Infof("enrolled %s", user)
	f.emit(events.New(events.Enrolled, role, slot, f.opts.Clock.Now()))
	return user, nil
}

// Authenticate checks the finger against the templates of role only.
func (f *Fingerprint) Authenticate(ctx context.Context, role roles.Role) (User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	r, ok := f.table.RangeOf(role)
	if !ok {
		return Nobody, fmt.Errorf("%w: %s", roles.ErrUnknownRole, role)
	}
	f.opts.Prompter.Prompt(PlaceFinger)
	if err := f.capture(ctx, "capture image"); err != nil {
		return Nobody, err
	}
	if err := f.extract(ctx, r308.Buffer1); err != nil {
		return Nobody, err
	}
	m, err := f.search(ctx, r)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			f.emit(events.New(events.Denied, role, NoSlot, f.opts.Clock.Now()))
		}
		return Nobody, err
	}
	user := User{Role: role, Slot: m.Slot}
	glog.Infof("granted %s score %d", user, m.Score)
	f.emit(events.New(events.Granted, role, m.Slot, f.opts.Clock.Now()).WithScore(m.Score))
	return user, nil
}

// Identify finds the user of the finger by searching every role range
// in table order. Slots outside all ranges are never searched.
func (f *Fingerprint) Identify(ctx context.Context) (User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.opts.Prompter.Prompt(PlaceFinger)
	if err := f.capture(ctx, "capture image"); err != nil {
		return Nobody, err
	}
	if err := f.extract(ctx, r308.Buffer1); err != nil {
		return Nobody, err
	}
	for _, e := range f.table.Entries() {
		m, err := f.search(ctx, e.Range)
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err != nil {
			return Nobody, err
		}
		user := User{Role: e.Role, Slot: m.Slot}
		glog.Infof("identified %s score %d", user, m.Score)
		f.emit(events.New(events.Granted, e.Role, m.Slot, f.opts.Clock.Now()).WithScore(m.Score))
		return user, nil
	}
	f.emit(events.New(events.Denied, roles.Unassigned, NoSlot, f.opts.Clock.Now()))
	return Nobody, ErrNoMatch
}

// Delete removes the template of user. Freed slots are not reused.
func (f *Fingerprint) Delete(ctx context.Context, user User) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	role := f.table.RoleOf(user.Slot)
	if user.Slot == NoSlot || role == roles.Unassigned {
		return fmt.Errorf("slot %d: %w", user.Slot, ErrSlotUnassigned)
	}
	if user.Role != roles.Unassigned && user.Role != role {
		return fmt.Errorf("slot %d belongs to %s, not %s: %w", user.Slot, role, user.Role, ErrSlotUnassigned)
	}
	if err := f.expect(ctx, "delete", func() (r308.Status, error) {
		return f.sensor.DeleteTemplates(user.Slot, 1)
	}); err != nil {
		return err
	}
	glog.Infof("deleted %s#%d", role, user.Slot)
	f.emit(events.New(events.Deleted, role, user.Slot, f.opts.Clock.Now()))
	return nil
}

// Clear removes all templates. Locations are kept.
func (f *Fingerprint) Clear(ctx context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.expect(ctx, "clear", f.sensor.ClearAll); err != nil {
		return err
	}
	glog.Info("cleared all templates")
	f.emit(events.New(events.Cleared, roles.Unassigned, NoSlot, f.opts.Clock.Now()))
	return nil
}

// TemplateCount returns the number of templates stored in the sensor.
func (f *Fingerprint) TemplateCount(ctx context.Context) (uint16, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	var n uint16
	err := f.expect(ctx, "template count", func() (st r308.Status, err error) {
		n, st, err = f.sensor.TemplateCount()
		return
	})
	return n, err
}

// Locations returns the next free slot of every role.
func (f *Fingerprint) Locations() map[roles.Role]uint16 {
	return f.locs.Snapshot()
}

func (f *Fingerprint) extract(ctx context.Context, buf r308.BufferID) error {
	return f.expect(ctx, fmt.Sprintf("extract to buffer %d", buf), func() (r308.Status, error) {
		return f.sensor.ExtractToBuffer(buf)
	})
}

// search looks for Buffer1 in r. A match reported outside r is
// treated as no match.
func (f *Fingerprint) search(ctx context.Context, r roles.Range) (r308.Match, error) {
	var m r308.Match
	st, err := f.do(ctx, "search", func() (st r308.Status, err error) {
		m, st, err = f.sensor.Search(r308.Buffer1, r.Min, uint16(r.Size()))
		return
	})
	if err != nil {
		return m, err
	}
	switch st {
	case r308.StatusOK:
		if !r.Contains(m.Slot) {
			glog.Warningf("search %s matched slot %d outside the range", r, m.Slot)
			return m, ErrNoMatch
		}
		return m, nil
	case r308.StatusNotFound:
		return m, ErrNoMatch
	}
	return m, &StatusError{Op: "search", Status: st}
}

func (f *Fingerprint) emit(e events.Event) {
	if err := f.opts.Events.Emit(e); err != nil {
		glog.Warningf("emit %s: %v", e.Type, err)
	}
}
