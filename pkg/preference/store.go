// Package preference holds the wanted destination of every routing category:
// compiled-in defaults plus optional runtime overrides.
package preference

import (
	"sync"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Defaults are the build-time wanted destinations, one per category.
type Defaults map[route.Category]route.Destination

// DefaultRoutes returns the compiled-in defaults: every protocol and the
// A/B technologies go to the host; technology F and system-code routing are
// left unrouted until a Felica-capable destination is configured.
func DefaultRoutes() Defaults {
	return Defaults{
		route.CategoryAID:        route.Host,
		route.CategoryIsoDep:     route.Host,
		route.CategoryT3T:        route.Host,
		route.CategoryTechA:      route.Host,
		route.CategoryTechB:      route.Host,
		route.CategoryTechF:      route.Unrouted,
		route.CategorySystemCode: route.Unrouted,
	}
}

// Clone returns a copy of d.
func (d Defaults) Clone() Defaults {
	out := make(Defaults, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Store resolves each category to its effective wanted destination.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	defaults  Defaults
	overrides map[route.Category]route.Destination
}

// NewStore creates a store with the given defaults and no overrides.
// Categories missing from defaults fall back to DefaultRoutes.
func NewStore(defaults Defaults) *Store {
	merged := DefaultRoutes()
	for c, d := range defaults {
		merged[c] = d
	}
	return &Store{
		defaults:  merged,
		overrides: make(map[route.Category]route.Destination),
	}
}

// SetOverride sets or clears (route.Unset) the override for c. It reports
// whether the effective destination of c changed.
func (s *Store) SetOverride(c route.Category, o route.Override) bool {
	if !c.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.effectiveLocked(c)
	if o.Set {
		s.overrides[c] = o.Dest
	} else {
		delete(s.overrides, c)
	}
	return s.effectiveLocked(c) != before
}

// Override returns the current override of c.
func (s *Store) Override(c route.Category) route.Override {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.overrides[c]; ok {
		return route.To(d)
	}
	return route.Unset
}

// Effective returns the override of c if present, else its default.
func (s *Store) Effective(c route.Category) route.Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectiveLocked(c)
}

// Default returns the compiled-in default of c.
func (s *Store) Default(c route.Category) route.Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.defaults[c]; ok {
		return d
	}
	return route.Unrouted
}

// Wanted returns the effective destination of every category.
func (s *Store) Wanted() map[route.Category]route.Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[route.Category]route.Destination, len(s.defaults))
	for _, c := range route.AllCategories() {
		out[c] = s.effectiveLocked(c)
	}
	return out
}

// Reset clears every override.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[route.Category]route.Destination)
}

func (s *Store) effectiveLocked(c route.Category) route.Destination {
	if d, ok := s.overrides[c]; ok {
		return d
	}
	if d, ok := s.defaults[c]; ok {
		return d
	}
	return route.Unrouted
}
