package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"

	"nxt-tipbot/errors"
)

// Registry is the catalog of tradable units. The native unit is registered
// at construction and always iterates first. Ids, names and monikers are
// unique across the whole catalog, case-insensitively.
type Registry struct {
	mu      sync.RWMutex
	items   []Transferable
	byToken map[string]int
	byID    map[uint64]int
}

func NewRegistry() *Registry {
	r := &Registry{
		byToken: make(map[string]int),
		byID:    make(map[uint64]int),
	}
	native := Native()
	r.items = append(r.items, native)
	r.byToken[strings.ToLower(native.Name)] = 0
	return r
}

// Add registers a unit. It fails if the id, the name or any moniker
// collides with an already registered entry.
func (r *Registry) Add(t Transferable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.ID]; ok {
		return fmt.Errorf("%w: id %d", errors.ErrDuplicateUnit, t.ID)
	}
	tokens := lo.Map(append([]string{t.Name}, t.Monikers...), func(token string, _ int) string {
		return strings.ToLower(token)
	})
	for _, token := range tokens {
		if _, ok := r.byToken[token]; ok {
			return fmt.Errorf("%w: %q", errors.ErrDuplicateUnit, token)
		}
	}

	index := len(r.items)
	r.items = append(r.items, t)
	r.byID[t.ID] = index
	for _, token := range tokens {
		r.byToken[token] = index
	}
	return nil
}

// Lookup resolves a unit by name or moniker, case-insensitively. An
// all-digit token that matches no name falls back to a numeric id match.
func (r *Registry) Lookup(token string) (Transferable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index, ok := r.byToken[strings.ToLower(token)]; ok {
		return r.items[index], true
	}
	if isAllDigits(token) {
		if id, err := strconv.ParseUint(token, 10, 64); err == nil {
			if index, ok := r.byID[id]; ok {
				return r.items[index], true
			}
		}
	}
	return Transferable{}, false
}

func (r *Registry) Contains(t Transferable) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, ok := r.byToken[strings.ToLower(t.Name)]
	return ok && r.items[index].ID == t.ID && r.items[index].Kind == t.Kind
}

// Native returns the pre-registered native unit.
func (r *Registry) Native() Transferable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[0]
}

// All yields the units in registration order, native first.
func (r *Registry) All() []Transferable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Transferable, len(r.items))
	copy(out, r.items)
	return out
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
