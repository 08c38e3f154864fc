// Package tracestate implements the vendor trace-state list carried
// alongside a span context: a bounded, ordered, validated set of key-value
// pairs that lets different tracing vendors propagate additional state and
// inter-operate with their legacy id formats.
package tracestate

import (
	"errors"
	"regexp"
)

const (
	keyMaxSize       = 256
	valueMaxSize     = 256
	maxKeyValuePairs = 32
)

var (
	// ErrExceedsMaxSize is returned when a key or value is longer than its
	// size limit.
	ErrExceedsMaxSize = errors.New("tracestate: exceeds maximum size")
	// ErrDoesNotMatchRegex is returned when a key or value contains
	// characters outside its allowed set.
	ErrDoesNotMatchRegex = errors.New("tracestate: does not match validation regex")
	// ErrDuplicateKey is returned when the entries passed to New contain the
	// same key twice.
	ErrDuplicateKey = errors.New("tracestate: duplicate key")
	// ErrMaxKeyValuePairsExceeded is returned when a merge would leave the
	// tracestate with more than 32 distinct keys.
	ErrMaxKeyValuePairsExceeded = errors.New("tracestate: maximum number of key-value pairs exceeded")
)

var (
	keyWithoutVendorRe = regexp.MustCompile(`^[a-z][_0-9a-z\-\*\/]{0,255}$`)
	keyWithVendorRe    = regexp.MustCompile(`^[a-z][_0-9a-z\-\*\/]{0,240}@[a-z][_0-9a-z\-\*\/]{0,13}$`)
	valueRe            = regexp.MustCompile(`^[\x20-\x2b\x2d-\x3c\x3e-\x7e]{0,255}[\x21-\x2b\x2d-\x3c\x3e-\x7e]$`)
)

// Key is an opaque string of up to 256 characters. It must begin with a
// lowercase letter and can only contain lowercase letters a-z, digits 0-9,
// underscores, dashes, asterisks and forward slashes, optionally followed by
// an @vendor suffix of up to 14 characters.
type Key struct {
	s string
}

// NewKey validates s and returns it as a Key. It returns ErrExceedsMaxSize
// or ErrDoesNotMatchRegex when validation fails.
func NewKey(s string) (Key, error) {
	if len(s) > keyMaxSize {
		return Key{}, ErrExceedsMaxSize
	}
	if !keyWithoutVendorRe.MatchString(s) && !keyWithVendorRe.MatchString(s) {
		return Key{}, ErrDoesNotMatchRegex
	}
	return Key{s: s}, nil
}

// String returns the key's text.
func (k Key) String() string {
	return k.s
}

// Value is an opaque string of up to 256 printable ASCII characters (the
// range 0x20 to 0x7e) excluding comma and equals, not ending in a space.
type Value struct {
	s string
}

// NewValue validates s and returns it as a Value. It returns
// ErrExceedsMaxSize or ErrDoesNotMatchRegex when validation fails.
func NewValue(s string) (Value, error) {
	if len(s) > valueMaxSize {
		return Value{}, ErrExceedsMaxSize
	}
	if !valueRe.MatchString(s) {
		return Value{}, ErrDoesNotMatchRegex
	}
	return Value{s: s}, nil
}

// String returns the value's text.
func (v Value) String() string {
	return v.s
}

// Entry is one key-value pair in a Tracestate.
type Entry struct {
	Key   Key
	Value Value
}

// Tracestate is an immutable list of up to 32 key-value pairs, enumerated
// most-recently-added first. A new Tracestate is derived from a parent plus
// new entries; the parent is never modified.
type Tracestate struct {
	entries []Entry
}

// New returns a Tracestate holding the parent's entries merged with the
// given new entries. A new entry whose key is already present overwrites the
// old value and moves to the most-recent position.
//
// New returns ErrDuplicateKey if entries contains the same key twice, and
// ErrMaxKeyValuePairsExceeded if the merged result would hold more than 32
// distinct keys. On error no Tracestate is constructed and the parent is
// unaffected.
func New(parent *Tracestate, entries ...Entry) (*Tracestate, error) {
	if parent == nil && len(entries) == 0 {
		return &Tracestate{}, nil
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Key.s]; dup {
			return nil, ErrDuplicateKey
		}
		seen[e.Key.s] = struct{}{}
	}

	var merged []Entry
	if parent != nil {
		merged = append(merged, parent.entries...)
	}
	for _, e := range entries {
		merged = insertFront(merged, e)
	}

	if len(merged) > maxKeyValuePairs {
		return nil, ErrMaxKeyValuePairsExceeded
	}
	return &Tracestate{entries: merged}, nil
}

// insertFront places e at the most-recent position, dropping any existing
// entry with the same key.
func insertFront(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, e)
	for _, existing := range entries {
		if existing.Key.s != e.Key.s {
			out = append(out, existing)
		}
	}
	return out
}

// Entries returns the entries in most-recently-added order. The returned
// slice is a copy; mutating it does not affect the Tracestate.
func (ts *Tracestate) Entries() []Entry {
	if ts == nil || len(ts.entries) == 0 {
		return nil
	}
	return append([]Entry(nil), ts.entries...)
}

// Len returns the number of entries.
func (ts *Tracestate) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.entries)
}

// Get returns the value stored under key, if any.
func (ts *Tracestate) Get(key Key) (Value, bool) {
	if ts == nil {
		return Value{}, false
	}
	for _, e := range ts.entries {
		if e.Key.s == key.s {
			return e.Value, true
		}
	}
	return Value{}, false
}
