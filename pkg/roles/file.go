package roles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Role string `yaml:"role"`
	Min  uint16 `yaml:"min"`
	Max  uint16 `yaml:"max"`
}

type fileTable struct {
	Roles []fileEntry `yaml:"roles"`
}

// Parse reads a YAML table:
//
//	roles:
//	  - role: owner
//	    min: 0
//	    max: 9
func Parse(data []byte) (*Table, error) {
	var raw fileTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw.Roles))
	for _, e := range raw.Roles {
		role, err := ParseRole(e.Role)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Role: role, Range: Range{Min: e.Min, Max: e.Max}})
	}
	t := NewTable(entries...)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads and validates a YAML table file.
func LoadFile(fn string) (*Table, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return t, nil
}
