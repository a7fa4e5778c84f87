package capability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// EEInfo describes the listen-mode capabilities of one execution environment.
type EEInfo struct {
	// ID is the execution environment id.
	ID route.Destination `cbor:"1,keyasint" yaml:"id"`

	// TechA lists the protocols supported on technology A.
	TechA route.ProtocolMask `cbor:"2,keyasint,omitempty" yaml:"tech_a"`

	// TechB lists the protocols supported on technology B.
	TechB route.ProtocolMask `cbor:"3,keyasint,omitempty" yaml:"tech_b"`

	// TechF lists the protocols supported on technology F.
	TechF route.ProtocolMask `cbor:"4,keyasint,omitempty" yaml:"tech_f"`
}

// Techs returns the technologies with at least one supported protocol.
func (e EEInfo) Techs() route.TechMask {
	var t route.TechMask
	if e.TechA != 0 {
		t |= route.TechA
	}
	if e.TechB != 0 {
		t |= route.TechB
	}
	if e.TechF != 0 {
		t |= route.TechF
	}
	return t
}

// SupportsIsoDep reports whether ISO-DEP is advertised on technology A or B.
func (e EEInfo) SupportsIsoDep() bool {
	return e.TechA.Has(route.ProtocolIsoDep) || e.TechB.Has(route.ProtocolIsoDep)
}

// Supports reports whether e advertises what category c requires.
func (e EEInfo) Supports(c route.Category) bool {
	switch c {
	case route.CategoryAID, route.CategoryIsoDep:
		return e.SupportsIsoDep()
	case route.CategoryT3T:
		return e.TechF.Has(route.ProtocolT3T)
	case route.CategoryTechA:
		return e.TechA != 0
	case route.CategoryTechB:
		return e.TechB != 0
	case route.CategoryTechF, route.CategorySystemCode:
		return e.TechF != 0
	default:
		return false
	}
}

// String returns a compact description.
func (e EEInfo) String() string {
	return fmt.Sprintf("%s[A=0x%02X B=0x%02X F=0x%02X]", e.ID, uint8(e.TechA), uint8(e.TechB), uint8(e.TechF))
}

// Snapshot is the set of discovered execution environments at one instant.
// Snapshots are immutable values; use NewSnapshot to build one.
type Snapshot struct {
	ees []EEInfo
}

// NewSnapshot builds a snapshot, sorted by id. When an id appears more than
// once the last entry wins.
func NewSnapshot(ees ...EEInfo) Snapshot {
	byID := make(map[route.Destination]EEInfo, len(ees))
	for _, ee := range ees {
		byID[ee.ID] = ee
	}
	out := make([]EEInfo, 0, len(byID))
	for _, ee := range byID {
		out = append(out, ee)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Snapshot{ees: out}
}

// EEs returns a copy of the snapshot entries.
func (s Snapshot) EEs() []EEInfo {
	out := make([]EEInfo, len(s.ees))
	copy(out, s.ees)
	return out
}

// Len returns the number of execution environments.
func (s Snapshot) Len() int {
	return len(s.ees)
}

// Lookup returns the entry for id.
func (s Snapshot) Lookup(id route.Destination) (EEInfo, bool) {
	for _, ee := range s.ees {
		if ee.ID == id {
			return ee, true
		}
	}
	return EEInfo{}, false
}

// Supports reports whether id is present and advertises what c requires.
func (s Snapshot) Supports(id route.Destination, c route.Category) bool {
	ee, ok := s.Lookup(id)
	return ok && ee.Supports(c)
}

// Equal reports whether both snapshots hold the same entries.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.ees) != len(o.ees) {
		return false
	}
	for i := range s.ees {
		if s.ees[i] != o.ees[i] {
			return false
		}
	}
	return true
}

// String returns a compact description of all entries.
func (s Snapshot) String() string {
	if len(s.ees) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.ees))
	for i, ee := range s.ees {
		parts[i] = ee.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// TechDrops returns the ids whose technology set was non-empty in prev and
// is empty in next. The controller emits such notifications transiently
// while an execution environment changes state.
func TechDrops(prev, next Snapshot) []route.Destination {
	var dropped []route.Destination
	for _, ee := range next.ees {
		if ee.Techs() != 0 {
			continue
		}
		old, ok := prev.Lookup(ee.ID)
		if ok && old.Techs() != 0 {
			dropped = append(dropped, ee.ID)
		}
	}
	return dropped
}

// Cache holds the current snapshot. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	snap       Snapshot
	generation uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Replace installs s and reports whether it differs from the previous
// snapshot. The generation advances only on change.
func (c *Cache) Replace(s Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap.Equal(s) && c.generation > 0 {
		return false
	}
	c.snap = s
	c.generation++
	return true
}

// Current returns the current snapshot.
func (c *Cache) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Generation returns the number of applied snapshot changes.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
