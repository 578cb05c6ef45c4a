package pathmap

import (
	"fmt"
	"strings"
)

// CurrentDir is the key that maps the guest's current directory.
const CurrentDir = "."

// Table maps guest path prefixes to host directories. Keys keep the order in
// which they were first set. A Table is filled during setup and only read
// while guests run.
type Table struct {
	dirs map[string]string
	keys []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{dirs: make(map[string]string)}
}

// Set maps guest to host. Re-setting a key replaces its value in place.
func (t *Table) Set(guest, host string) {
	if t.dirs == nil {
		t.dirs = make(map[string]string)
	}
	if _, ok := t.dirs[guest]; !ok {
		t.keys = append(t.keys, guest)
	}
	t.dirs[guest] = host
}

// Get returns the host directory mapped to guest.
func (t *Table) Get(guest string) (string, bool) {
	if t == nil {
		return "", false
	}
	host, ok := t.dirs[guest]
	return host, ok
}

// Keys returns the guest keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// String renders the table as comma-separated guest:host pairs.
func (t *Table) String() string {
	if t == nil {
		return ""
	}
	parts := make([]string, len(t.keys))
	for i, k := range t.keys {
		parts[i] = k + ":" + t.dirs[k]
	}
	return strings.Join(parts, ",")
}

// ParseMapping splits a "guest:host" mapping at its first colon.
func ParseMapping(s string) (guest, host string, err error) {
	guest, host, ok := strings.Cut(s, ":")
	if !ok || guest == "" || host == "" {
		return "", "", fmt.Errorf("invalid mapping %q: expected guest:host", s)
	}
	return guest, host, nil
}

// Add parses a "guest:host" mapping and sets it.
func (t *Table) Add(mapping string) error {
	guest, host, err := ParseMapping(mapping)
	if err != nil {
		return err
	}
	t.Set(guest, host)
	return nil
}
