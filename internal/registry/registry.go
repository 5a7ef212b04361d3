// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the configured provider backends, their type
// affinities and their per-provider settings. A Registry is built once at
// startup and only read afterwards, so it is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pdiddy/openresources/internal/provider"
	"github.com/pdiddy/openresources/pkg/types"
)

// Entry is one registered backend with its operational settings.
type Entry struct {
	Backend provider.Backend

	// Types is the type affinity used to select the backend for a query.
	Types []types.ResourceType

	// Timeout caps the backend below the shared request deadline. Zero means
	// only the shared deadline applies.
	Timeout time.Duration

	Enabled bool
}

// Name returns the backend name.
func (e Entry) Name() string { return e.Backend.Name() }

// Handles reports whether the entry can answer a query with filter f.
func (e Entry) Handles(f types.TypeFilter) bool {
	if f == types.FilterAll {
		return true
	}
	return slices.Contains(e.Types, types.ResourceType(f))
}

// Registry is the read-only set of provider entries in registration order.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

var errInvalidEntry = errors.New("invalid registry entry")

// New validates entries and builds a Registry. An entry with no Types
// inherits its backend's; an entry whose Types are narrower than the
// backend's is wrapped so results outside the affinity are dropped.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.Backend == nil {
			return nil, fmt.Errorf("%w: nil backend", errInvalidEntry)
		}
		name := e.Backend.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: backend with empty name", errInvalidEntry)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate provider %q", errInvalidEntry, name)
		}

		native := e.Backend.Types()
		if len(e.Types) == 0 {
			e.Types = native
		}
		if len(e.Types) == 0 {
			return nil, fmt.Errorf("%w: provider %q has no type affinity", errInvalidEntry, name)
		}
		for _, t := range e.Types {
			if !slices.Contains(native, t) {
				return nil, fmt.Errorf("%w: provider %q cannot produce %s", errInvalidEntry, name, t)
			}
		}
		if len(e.Types) < len(native) {
			e.Backend = provider.WithTypes(e.Backend, e.Types)
		}
		if e.Timeout < 0 {
			return nil, fmt.Errorf("%w: provider %q has negative timeout", errInvalidEntry, name)
		}

		r.byName[name] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// AdaptersFor returns the enabled entries that can answer filter f, in
// registration order.
func (r *Registry) AdaptersFor(f types.TypeFilter) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Enabled && e.Handles(f) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns every entry, enabled or not.
func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Len returns the number of registered entries.
func (r *Registry) Len() int { return len(r.entries) }
