// Package region resolves free-text Russian region names to ISO 3166-2 codes.
package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Entry is one canonical region name and its ISO code.
type Entry struct {
	Name string
	Code string
}

// Table is the canonical name -> code table. Entry order is the order of the
// source file and decides ties during resolution.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries in the given order.
func NewTable(entries []Entry) *Table {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Table{entries: cp}
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	cp := make([]Entry, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// LoadTable reads a JSON object of name -> code, keeping key order.
func LoadTable(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableUnavailable, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrTableUnavailable)
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTableUnavailable, err)
		}
		name, _ := keyTok.(string)

		var code string
		if err := dec.Decode(&code); err != nil {
			return nil, fmt.Errorf("%w: code for %q: %w", ErrTableUnavailable, name, err)
		}
		entries = append(entries, Entry{Name: name, Code: code})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableUnavailable, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrTableUnavailable)
	}
	return &Table{entries: entries}, nil
}

// LoadTableFile opens path and reads it with LoadTable.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableUnavailable, err)
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// IsUnavailable reports whether err came from a failed table load.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTableUnavailable)
}
