// Package roles maps locker roles to slot ranges of the sensor library.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies a class of locker users.
type Role int

// Roles, ordered. The ordinal is also the index of the persisted location cell.
const (
	Owner Role = iota
	Member
	Guest

	// Unassigned is the role of a slot covered by no range.
	Unassigned Role = -1
)

// ErrUnknownRole indicates a role not present in the table.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = map[Role]string{
	Owner:      "owner",
	Member:     "member",
	Guest:      "guest",
	Unassigned: "unassigned",
}

// String implements fmt.Stringer.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole parses a role name, case insensitive.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s && r != Unassigned {
			return r, nil
		}
	}
	return Unassigned, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MaxSlot is the highest slot a range may end at. The exhausted
// location Max+1 must stay below 0xFFFF, the value of an erased cell.
const MaxSlot uint16 = 0xFFFD

// Range is an inclusive slot range.
type Range struct {
	Min uint16
	Max uint16
}

// Contains tells whether slot is in the range.
func (r Range) Contains(slot uint16) bool {
	return slot >= r.Min && slot <= r.Max
}

// Size is the number of slots.
func (r Range) Size() int {
	return int(r.Max) - int(r.Min) + 1
}

// Overlaps tells whether the two ranges share a slot.
func (r Range) Overlaps(o Range) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}

// Entry binds a role to its range.
type Entry struct {
	Role  Role
	Range Range
}

// Table is the static role to range mapping.
// Ranges are expected to be disjoint, see Validate.
type Table struct {
	entries []Entry
}

// NewTable creates a table keeping the order of entries.
func NewTable(entries ...Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Default is the factory table.
func Default() *Table {
	return NewTable(
		Entry{Role: Owner, Range: Range{Min: 0, Max: 9}},
		Entry{Role: Member, Range: Range{Min: 10, Max: 19}},
		Entry{Role: Guest, Range: Range{Min: 20, Max: 499}},
	)
}

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Roles returns the roles in table order.
func (t *Table) Roles() []Role {
	roles := make([]Role, 0, len(t.entries))
	for _, e := range t.entries {
		roles = append(roles, e.Role)
	}
	return roles
}

// RangeOf finds the range of a role.
func (t *Table) RangeOf(r Role) (Range, bool) {
	for _, e := range t.entries {
		if e.Role == r {
			return e.Range, true
		}
	}
	return Range{}, false
}

// RoleOf finds the role owning slot, Unassigned if none.
func (t *Table) RoleOf(slot uint16) Role {
	for _, e := range t.entries {
		if e.Range.Contains(slot) {
			return e.Role
		}
	}
	return Unassigned
}

// Validate checks roles are unique, ranges well formed and disjoint.
func (t *Table) Validate() error {
	if len(t.entries) == 0 {
		return errors.New("empty role table")
	}
	for i, e := range t.entries {
		if e.Role < 0 {
			return fmt.Errorf("entry %d: invalid role %d", i, int(e.Role))
		}
		if e.Range.Min > e.Range.Max {
			return fmt.Errorf("%s: min %d exceeds max %d", e.Role, e.Range.Min, e.Range.Max)
		}
		if e.Range.Max > MaxSlot {
			return fmt.Errorf("%s: max %d exceeds %d", e.Role, e.Range.Max, MaxSlot)
		}
		for _, o := range t.entries[:i] {
			if o.Role == e.Role {
				return fmt.Errorf("%s: duplicated", e.Role)
			}
			if o.Range.Overlaps(e.Range) {
				return fmt.Errorf("%s %s overlaps %s %s", e.Role, e.Range, o.Role, o.Range)
			}
		}
	}
	return nil
}
