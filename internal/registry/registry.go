// Package registry keys live overlays by identity and resolves the
// first-sighting-creates, later-sighting-mutates rule for the feed and the
// playback suspension that shields an entity from live updates while its
// history is being replayed.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/harborwatch/harborwatch/internal/model/core"
)

// Entity is the registry's view of an overlay.
type Entity interface {
	Update(core.StatePatch) error
	Summary() core.Summary
	Remove()
}

// Registry maps identities to overlays. One instance per entity kind
// (vessels, sensors); both feed ingest and playback go through it.
type Registry struct {
	mu        sync.Mutex
	entities  map[string]Entity
	suspended map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entities:  make(map[string]Entity),
		suspended: make(map[string]struct{}),
	}
}

// Upsert routes a live update to the overlay for identity, creating it via
// create on first sighting. Updates for suspended identities are dropped so
// playback keeps exclusive control of the overlay; the suspension does not
// block creation, since a suspended identity always already exists.
func (r *Registry) Upsert(identity string, create func() (Entity, error), patch core.StatePatch) error {
	r.mu.Lock()
	if _, ok := r.suspended[identity]; ok {
		r.mu.Unlock()
		return nil
	}
	e, ok := r.entities[identity]
	r.mu.Unlock()

	if ok {
		return e.Update(patch)
	}

	e, err := create()
	if err != nil {
		return err
	}

	r.mu.Lock()
	if existing, raced := r.entities[identity]; raced {
		// Another goroutine created it first; fold this sighting in.
		r.mu.Unlock()
		e.Remove()
		return existing.Update(patch)
	}
	r.entities[identity] = e
	r.mu.Unlock()
	return nil
}

// Apply routes a patch directly to an existing overlay, bypassing the
// suspension check. This is the playback path.
func (r *Registry) Apply(identity string, patch core.StatePatch) error {
	r.mu.Lock()
	e, ok := r.entities[identity]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.Update(patch)
}

// Get returns the overlay for identity, if present.
func (r *Registry) Get(identity string) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[identity]
	return e, ok
}

// Len reports how many entities are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// Suspend shields identity from live updates until Resume. Playback calls it
// when a replay session opens on the entity.
func (r *Registry) Suspend(identity string) {
	r.mu.Lock()
	r.suspended[identity] = struct{}{}
	r.mu.Unlock()
}

// Resume lifts a suspension; the next live sighting repositions the overlay.
func (r *Registry) Resume(identity string) {
	r.mu.Lock()
	delete(r.suspended, identity)
	r.mu.Unlock()
}

// Suspended reports whether identity is currently shielded.
func (r *Registry) Suspended(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.suspended[identity]
	return ok
}

// Select returns the summary for identity, for the detail panel to open on.
func (r *Registry) Select(identity string) (core.Summary, bool) {
	e, ok := r.Get(identity)
	if !ok {
		return core.Summary{}, false
	}
	return e.Summary(), true
}

// Snapshot returns the current last-known state of every entity, keyed by
// identity. This is the search index republished after each batch.
func (r *Registry) Snapshot() map[string]core.Summary {
	r.mu.Lock()
	entities := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	r.mu.Unlock()

	out := make(map[string]core.Summary, len(entities))
	for _, e := range entities {
		s := e.Summary()
		out[s.Identity] = s
	}
	return out
}

// Search returns summaries whose identity contains the query,
// case-insensitive, sorted by identity. An empty query matches everything.
func (r *Registry) Search(query string) []core.Summary {
	query = strings.ToLower(query)
	snap := r.Snapshot()
	out := make([]core.Summary, 0, len(snap))
	for id, s := range snap {
		if query == "" || strings.Contains(strings.ToLower(id), query) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Teardown removes every overlay and clears the registry.
func (r *Registry) Teardown() {
	r.mu.Lock()
	entities := r.entities
	r.entities = make(map[string]Entity)
	r.suspended = make(map[string]struct{})
	r.mu.Unlock()

	for _, e := range entities {
		e.Remove()
	}
}
