package store

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/roles"
)

// CorruptCellError reports a stored location outside its role range.
type CorruptCellError struct {
	Role  roles.Role
	Value uint16
	Range roles.Range
}

// Error implements error.
func (e *CorruptCellError) Error() string {
	return fmt.Sprintf("location of %s is %d, outside %s", e.Role, e.Value, e.Range)
}

// Locations caches the next free slot of every role in the table.
// A location only grows, from Range.Min to Range.Max+1 which means exhausted.
type Locations struct {
	cells Cells
	table *roles.Table
	next  map[roles.Role]uint16
	lock  sync.RWMutex
}

// Load reads the cell of every role once. An Unformatted cell reads as
// the range minimum.
func Load(cells Cells, table *roles.Table) (*Locations, error) {
	l := &Locations{cells: cells, table: table, next: make(map[roles.Role]uint16)}
	for _, e := range table.Entries() {
		v, err := cells.ReadCell(int(e.Role))
		if err != nil {
			return nil, fmt.Errorf("read location of %s: %w", e.Role, err)
		}
		if v == Unformatted {
			v = e.Range.Min
		} else if v < e.Range.Min || int(v) > int(e.Range.Max)+1 {
			return nil, &CorruptCellError{Role: e.Role, Value: v, Range: e.Range}
		}
		l.next[e.Role] = v
		glog.V(1).Infof("location %s: %d", e.Role, v)
	}
	return l, nil
}

// Read returns the next free slot of role.
func (l *Locations) Read(role roles.Role) (uint16, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	v, ok := l.next[role]
	if !ok {
		return 0, fmt.Errorf("%w: %s", roles.ErrUnknownRole, role)
	}
	return v, nil
}

// Exhausted tells whether the role has no free slot left.
func (l *Locations) Exhausted(role roles.Role) bool {
	r, ok := l.table.RangeOf(role)
	if !ok {
		return true
	}
	v, err := l.Read(role)
	return err != nil || v > r.Max
}

// Write persists the next free slot of role. The cached value changes
// only when the cell write succeeds.
// It panics if slot is outside [Min, Max+1] of the role range.
func (l *Locations) Write(role roles.Role, slot uint16) error {
	r, ok := l.table.RangeOf(role)
	if !ok {
		return fmt.Errorf("%w: %s", roles.ErrUnknownRole, role)
	}
	if slot < r.Min || int(slot) > int(r.Max)+1 {
		panic(fmt.Sprintf("location %d outside %s of %s", slot, r, role))
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if err := l.cells.WriteCell(int(role), slot); err != nil {
		return fmt.Errorf("write location of %s: %w", role, err)
	}
	l.next[role] = slot
	return nil
}

// Snapshot returns the locations of all roles.
func (l *Locations) Snapshot() map[roles.Role]uint16 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	m := make(map[roles.Role]uint16, len(l.next))
	for k, v := range l.next {
		m[k] = v
	}
	return m
}
