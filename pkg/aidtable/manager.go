// Package aidtable manages the controller's AID routing table.
//
// Every mutation is a blocking request/acknowledge exchange with the
// controller: the command is issued, then the caller waits without a timeout
// for its completion (the controller API guarantees one). A local mirror of
// the accepted entries is kept for the commit logic and for diagnostics.
//
// The zero-length pattern is reserved for the default AID entry, which
// catches every AID without a more specific match.
package aidtable

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// MaxAIDLength is the longest AID pattern accepted, in bytes.
const MaxAIDLength = 16

// Default power policy values.
const (
	DefaultHostPower    = route.PowerSwitchedOn | route.PowerScreenOnLocked
	DefaultOffHostPower = route.PowerSwitchedOn | route.PowerSwitchedOff | route.PowerBatteryOff |
		route.PowerScreenOnLocked | route.PowerScreenOffUnlocked | route.PowerScreenOffLocked
)

// ErrInvalidAID is returned for patterns longer than MaxAIDLength.
var ErrInvalidAID = errors.New("invalid AID pattern")

// Issuer sends a command and waits for its completion.
type Issuer interface {
	Do(cmd controller.Command) (controller.Status, error)
}

// PowerPolicy selects power states for AID entries.
type PowerPolicy struct {
	// HostPower applies to host entries registered without a power state.
	HostPower route.PowerState

	// OffHostPower applies to off-host entries registered without a power
	// state, and to every off-host entry while secure mode is enabled.
	OffHostPower route.PowerState
}

// DefaultPowerPolicy returns the default policy.
func DefaultPowerPolicy() PowerPolicy {
	return PowerPolicy{HostPower: DefaultHostPower, OffHostPower: DefaultOffHostPower}
}

// Entry is one AID routing entry as accepted by the controller.
type Entry struct {
	AID   []byte
	Dest  route.Destination
	Match route.MatchQualifier
	Power route.PowerState
}

// IsDefault reports whether e is the default AID entry.
func (e Entry) IsDefault() bool {
	return len(e.AID) == 0
}

// String returns a compact description.
func (e Entry) String() string {
	aid := "<default>"
	if !e.IsDefault() {
		aid = hex.EncodeToString(e.AID)
	}
	return fmt.Sprintf("%s -> %s (%s, power=0x%02X)", aid, e.Dest, e.Match, uint8(e.Power))
}

// Manager issues AID table mutations and mirrors the accepted entries.
type Manager struct {
	issuer Issuer
	logger *slog.Logger

	mu            sync.Mutex
	policy        PowerPolicy
	secure        bool
	entries       map[string]Entry
	pending       bool
	callerDefault bool
}

// NewManager creates a manager issuing commands through issuer.
// A nil logger disables logging.
func NewManager(issuer Issuer, policy PowerPolicy, logger *slog.Logger) *Manager {
	return &Manager{
		issuer:  issuer,
		logger:  logger,
		policy:  policy,
		entries: make(map[string]Entry),
	}
}

// SetSecure enables or disables NFC secure mode and reports whether it changed.
func (m *Manager) SetSecure(on bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := m.secure != on
	m.secure = on
	return changed
}

// Secure reports whether NFC secure mode is enabled.
func (m *Manager) Secure() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secure
}

// EffectivePower returns the power state an entry for dest is installed with.
// In secure mode off-host entries follow the off-host policy and host
// entries are restricted to screen-on; otherwise the requested state is used,
// with zero selecting the policy default.
func (m *Manager) EffectivePower(dest route.Destination, requested route.PowerState) route.PowerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.secure {
		if dest.IsOffHost() {
			return m.policy.OffHostPower
		}
		return route.PowerScreenOnOnly
	}
	if requested != 0 {
		return requested
	}
	if dest.IsOffHost() {
		return m.policy.OffHostPower
	}
	return m.policy.HostPower
}

// Add registers an AID entry on behalf of a caller. A zero-length aid
// registers the default entry for the current commit cycle.
func (m *Manager) Add(aid []byte, dest route.Destination, match route.MatchQualifier, power route.PowerState) error {
	return m.add(aid, dest, match, power, true)
}

// InstallDefault (re)installs the default entry without marking it as
// caller-registered.
func (m *Manager) InstallDefault(dest route.Destination, power route.PowerState) error {
	return m.add(nil, dest, route.MatchDefault, power, false)
}

func (m *Manager) add(aid []byte, dest route.Destination, match route.MatchQualifier, power route.PowerState, caller bool) error {
	if len(aid) > MaxAIDLength {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAID, len(aid))
	}
	if dest == route.Unrouted {
		return fmt.Errorf("%w: unrouted destination", ErrInvalidAID)
	}
	if len(aid) == 0 {
		match = route.MatchDefault
	} else if match == route.MatchDefault {
		match = route.MatchExact
	}

	e := Entry{
		AID:   append([]byte(nil), aid...),
		Dest:  dest,
		Match: match,
		Power: m.EffectivePower(dest, power),
	}

	_, err := m.issuer.Do(controller.Command{
		Op:    controller.OpAddAid,
		AID:   e.AID,
		Dest:  e.Dest,
		Match: e.Match,
		Power: e.Power,
	})
	if err != nil {
		m.debugLog("aid add failed", "entry", e.String(), "error", err)
		return fmt.Errorf("add aid %s: %w", e, err)
	}

	m.mu.Lock()
	m.entries[key(e.AID)] = e
	m.pending = true
	if e.IsDefault() {
		m.callerDefault = caller
	}
	m.mu.Unlock()

	m.debugLog("aid added", "entry", e.String(), "caller", caller)
	return nil
}

// Remove deletes the entry for aid. A zero-length aid removes the default entry.
func (m *Manager) Remove(aid []byte) error {
	if len(aid) > MaxAIDLength {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAID, len(aid))
	}

	_, err := m.issuer.Do(controller.Command{
		Op:  controller.OpRemoveAid,
		AID: append([]byte(nil), aid...),
	})
	if err != nil {
		m.debugLog("aid remove failed", "aid", hex.EncodeToString(aid), "error", err)
		return fmt.Errorf("remove aid %s: %w", hex.EncodeToString(aid), err)
	}

	m.mu.Lock()
	delete(m.entries, key(aid))
	m.pending = true
	if len(aid) == 0 {
		m.callerDefault = false
	}
	m.mu.Unlock()

	m.debugLog("aid removed", "aid", hex.EncodeToString(aid))
	return nil
}

// ClearAll removes every entry, including the default entry.
func (m *Manager) ClearAll() error {
	_, err := m.issuer.Do(controller.Command{Op: controller.OpRemoveAid, All: true})
	if err != nil {
		m.debugLog("aid clear failed", "error", err)
		return fmt.Errorf("clear aid table: %w", err)
	}

	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.pending = true
	m.callerDefault = false
	m.mu.Unlock()

	m.debugLog("aid table cleared")
	return nil
}

// Pending reports whether a mutation has not yet been activated by a commit.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// CallerDefault reports whether a caller registered the default entry in
// the current commit cycle.
func (m *Manager) CallerDefault() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callerDefault
}

// BeginCycle starts a new commit cycle after a successful commit.
func (m *Manager) BeginCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = false
	m.callerDefault = false
}

// Default returns the default entry, if installed.
func (m *Manager) Default() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[""]
	return e, ok
}

// Entries returns all entries ordered by pattern; the default entry first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].AID) < key(out[j].AID) })
	return out
}

func key(aid []byte) string {
	return hex.EncodeToString(aid)
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
