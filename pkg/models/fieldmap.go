package models

import "fmt"

// FieldMapping ties one canonical struct field to its name in a backend.
type FieldMapping struct {
	Canonical string
	Native    string
}

// FieldMap is the declarative, bidirectional naming table for one entity in
// one backend. Every backend field either has exactly one canonical
// destination or is listed in Dropped; canonical fields that no backend field
// feeds directly (assembled from joins, computed) are listed in Derived.
type FieldMap struct {
	Entity  string
	Fields  []FieldMapping
	Dropped []string
	Derived []string
}

// Native returns the backend name of a canonical field. It panics on an
// unmapped name: the tables are static and a miss is a programming error.
func (m FieldMap) Native(canonical string) string {
	for _, f := range m.Fields {
		if f.Canonical == canonical {
			return f.Native
		}
	}
	panic(fmt.Sprintf("models: %s has no mapping for field %q", m.Entity, canonical))
}

// Canonical resolves a backend name. Dropped names resolve to "", true.
func (m FieldMap) Canonical(native string) (string, bool) {
	for _, f := range m.Fields {
		if f.Native == native {
			return f.Canonical, true
		}
	}
	for _, d := range m.Dropped {
		if d == native {
			return "", true
		}
	}
	return "", false
}

// Columns returns backend names for the given canonical fields, in order.
func (m FieldMap) Columns(canonical ...string) []string {
	out := make([]string, 0, len(canonical))
	for _, c := range canonical {
		out = append(out, m.Native(c))
	}
	return out
}

// NativeNames lists every backend name the map knows, mapped or dropped.
func (m FieldMap) NativeNames() []string {
	out := make([]string, 0, len(m.Fields)+len(m.Dropped))
	for _, f := range m.Fields {
		out = append(out, f.Native)
	}
	return append(out, m.Dropped...)
}

// Covers reports whether a canonical field is mapped or derived.
func (m FieldMap) Covers(canonical string) bool {
	for _, f := range m.Fields {
		if f.Canonical == canonical {
			return true
		}
	}
	for _, d := range m.Derived {
		if d == canonical {
			return true
		}
	}
	return false
}
