package route

import "strings"

// TechMask is a set of RF technologies.
type TechMask uint8

const (
	TechA TechMask = 0x01
	TechB TechMask = 0x02
	TechF TechMask = 0x04
)

// String returns the technologies as "A|B|F", or "none".
func (t TechMask) String() string {
	var parts []string
	if t&TechA != 0 {
		parts = append(parts, "A")
	}
	if t&TechB != 0 {
		parts = append(parts, "B")
	}
	if t&TechF != 0 {
		parts = append(parts, "F")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ProtocolMask is a set of RF protocols an execution environment supports
// on one technology.
type ProtocolMask uint8

const (
	ProtocolT1T    ProtocolMask = 0x01
	ProtocolT2T    ProtocolMask = 0x02
	ProtocolT3T    ProtocolMask = 0x04
	ProtocolIsoDep ProtocolMask = 0x08
	ProtocolNfcDep ProtocolMask = 0x10
)

// Has reports whether all bits of p are present in m.
func (m ProtocolMask) Has(p ProtocolMask) bool {
	return m&p == p
}

// MuteBitmap gates which technologies are exposed to listen mode.
type MuteBitmap uint8

const (
	MuteTechA MuteBitmap = 0x01
	MuteTechB MuteBitmap = 0x02
	MuteTechF MuteBitmap = 0x04

	// MuteDiscoveryDisabled stops the controller entirely instead of
	// partially muting it.
	MuteDiscoveryDisabled MuteBitmap = 0x08
)

// DiscoveryDisabled reports whether the discovery-disabled bit is set.
func (m MuteBitmap) DiscoveryDisabled() bool {
	return m&MuteDiscoveryDisabled != 0
}

// MutedTechs returns the technologies muted by m. When discovery is
// disabled every technology is muted.
func (m MuteBitmap) MutedTechs() TechMask {
	if m.DiscoveryDisabled() {
		return TechA | TechB | TechF
	}
	var t TechMask
	if m&MuteTechA != 0 {
		t |= TechA
	}
	if m&MuteTechB != 0 {
		t |= TechB
	}
	if m&MuteTechF != 0 {
		t |= TechF
	}
	return t
}

// String returns the muted technologies, or "discovery-disabled".
func (m MuteBitmap) String() string {
	if m.DiscoveryDisabled() {
		return "discovery-disabled"
	}
	return m.MutedTechs().String()
}

// PowerState is the bitmap of power states in which a route is active.
type PowerState uint8

const (
	PowerSwitchedOn        PowerState = 0x01
	PowerSwitchedOff       PowerState = 0x02
	PowerBatteryOff        PowerState = 0x04
	PowerScreenOffUnlocked PowerState = 0x08
	PowerScreenOnLocked    PowerState = 0x10
	PowerScreenOffLocked   PowerState = 0x20

	// PowerScreenOnOnly restricts a route to the unlocked, screen-on state.
	PowerScreenOnOnly = PowerSwitchedOn
)

// MatchQualifier selects how an AID pattern is matched.
type MatchQualifier uint8

const (
	// MatchExact matches the full AID.
	MatchExact MatchQualifier = 0x00

	// MatchPrefix matches any AID starting with the pattern.
	MatchPrefix MatchQualifier = 0x10

	// MatchDefault marks the zero-length default AID entry.
	MatchDefault MatchQualifier = 0xFF
)

// String returns the qualifier name.
func (q MatchQualifier) String() string {
	switch q {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchDefault:
		return "default"
	default:
		return "unknown"
	}
}
