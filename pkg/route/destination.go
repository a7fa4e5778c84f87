package route

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDestination is returned when a destination string cannot be parsed.
var ErrInvalidDestination = errors.New("invalid route destination")

// Destination identifies where listen-mode traffic is delivered.
type Destination uint8

const (
	// Host routes traffic to the host CPU.
	Host Destination = 0x00

	// Unrouted means no suitable route exists for a category.
	Unrouted Destination = 0xFF

	// hciFlag marks ids of EEs reached through the host controller interface.
	hciFlag Destination = 0x80
)

// IsHost reports whether d is the host.
func (d Destination) IsHost() bool {
	return d == Host
}

// IsUnrouted reports whether d is the "no suitable route" sentinel.
func (d Destination) IsUnrouted() bool {
	return d == Unrouted
}

// IsOffHost reports whether d is an execution environment other than the host.
func (d Destination) IsOffHost() bool {
	return d != Host && d != Unrouted
}

// IsHCI reports whether d is an execution environment reached through the
// host controller interface.
func (d Destination) IsHCI() bool {
	return d.IsOffHost() && d&hciFlag != 0
}

// String returns "host", "unrouted" or the id in hex.
func (d Destination) String() string {
	switch d {
	case Host:
		return "host"
	case Unrouted:
		return "unrouted"
	default:
		return fmt.Sprintf("0x%02X", uint8(d))
	}
}

// ParseDestination parses "host", "unrouted" or a numeric id ("0x81", "129").
func ParseDestination(s string) (Destination, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host", "dh":
		return Host, nil
	case "unrouted", "none":
		return Unrouted, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	return Destination(v), nil
}

// Override is a runtime routing preference for one category.
// The zero value is Unset.
type Override struct {
	Dest Destination
	Set  bool
}

// Unset means "no override, use the compiled-in default".
var Unset = Override{}

// To returns an override selecting d.
func To(d Destination) Override {
	return Override{Dest: d, Set: true}
}

// String returns "unset" or the destination.
func (o Override) String() string {
	if !o.Set {
		return "unset"
	}
	return o.Dest.String()
}
