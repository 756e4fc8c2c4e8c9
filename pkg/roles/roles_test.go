package roles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()
	require.NoError(t, table.Validate())
	require.Equal(t, []Role{Owner, Member, Guest}, table.Roles())

	r, ok := table.RangeOf(Member)
	require.True(t, ok)
	require.Equal(t, Range{Min: 10, Max: 19}, r)
	require.Equal(t, 10, r.Size())

	_, ok = table.RangeOf(Unassigned)
	require.False(t, ok)
}

func TestRoleOf(t *testing.T) {
	table := Default()
	testCases := []struct {
		slot uint16
		role Role
	}{
		{0, Owner}, {9, Owner}, {10, Member}, {19, Member}, {20, Guest}, {499, Guest}, {500, Unassigned},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.role, table.RoleOf(tc.slot), "slot %d", tc.slot)
	}
}

func TestRoleOfIsConsistentWithRangeOf(t *testing.T) {
	table := Default()
	for slot := 0; slot < 600; slot++ {
		role := table.RoleOf(uint16(slot))
		if role == Unassigned {
			continue
		}
		r, ok := table.RangeOf(role)
		require.True(t, ok)
		require.True(t, r.Contains(uint16(slot)))
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		entries []Entry
		bad     bool
	}{
		{"disjoint", []Entry{{Owner, Range{0, 4}}, {Guest, Range{5, 5}}}, false},
		{"empty", nil, true},
		{"overlap", []Entry{{Owner, Range{0, 10}}, {Member, Range{10, 19}}}, true},
		{"inverted", []Entry{{Owner, Range{9, 0}}}, true},
		{"duplicated role", []Entry{{Owner, Range{0, 1}}, {Owner, Range{2, 3}}}, true},
		{"reserved slot", []Entry{{Guest, Range{20, 0xFFFF}}}, true},
		{"exhausted location erased", []Entry{{Owner, Range{0xFFFD, 0xFFFE}}}, true},
		{"highest slot", []Entry{{Owner, Range{0xFFF0, MaxSlot}}}, false},
		{"unassigned role", []Entry{{Unassigned, Range{0, 1}}}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewTable(tc.entries...).Validate()
			if tc.bad {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Member ")
	require.NoError(t, err)
	require.Equal(t, Member, r)
	_, err = ParseRole("unassigned")
	require.ErrorIs(t, err, ErrUnknownRole)
	_, err = ParseRole("janitor")
	require.ErrorIs(t, err, ErrUnknownRole)
	require.Equal(t, "role(7)", Role(7).String())
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
roles:
  - role: owner
    min: 0
    max: 4
  - role: guest
    min: 100
    max: 199
`), 0644))
	table, err := LoadFile(fn)
	require.NoError(t, err)
	require.Equal(t, []Role{Owner, Guest}, table.Roles())
	require.Equal(t, Unassigned, table.RoleOf(50))

	require.NoError(t, os.WriteFile(fn, []byte("roles:\n  - {role: owner, min: 0, max: 9}\n  - {role: member, min: 5, max: 19}\n"), 0644))
	_, err = LoadFile(fn)
	require.Error(t, err)
}
