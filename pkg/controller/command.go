package controller

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Controller errors.
var (
	ErrShutdown      = errors.New("controller shut down")
	ErrTimeout       = errors.New("timed out waiting for controller")
	ErrNotSupported  = errors.New("operation not supported by controller")
	ErrCommandFailed = errors.New("controller rejected command")
	ErrNoTransport   = errors.New("no controller transport")
)

// OpKind identifies a controller operation. Completions are correlated to
// commands by kind.
type OpKind uint8

const (
	// OpModeSet enables or disables an execution environment.
	OpModeSet OpKind = iota + 1

	// OpDiscoverRequest asks the controller to (re)report execution
	// environment capabilities.
	OpDiscoverRequest

	// OpAddAid adds an AID routing entry.
	OpAddAid

	// OpRemoveAid removes one AID routing entry, or all of them.
	OpRemoveAid

	// OpUpdateNow activates the routing table built so far.
	OpUpdateNow

	// OpForceRouting routes all listen-mode traffic to one destination,
	// or releases a previous force.
	OpForceRouting

	// OpClearRouting clears protocol, technology and/or system-code routing.
	OpClearRouting

	// OpSetProtocolRoute sets the route of one protocol.
	OpSetProtocolRoute

	// OpSetTechRoute sets the route of one technology.
	OpSetTechRoute

	// OpSetHostListenTech selects the technologies the host listens on.
	OpSetHostListenTech

	// OpAddSystemCode adds a system-code routing entry.
	OpAddSystemCode

	// OpRemoveSystemCode removes a system-code routing entry.
	OpRemoveSystemCode
)

// String returns the operation name.
func (o OpKind) String() string {
	switch o {
	case OpModeSet:
		return "MODE_SET"
	case OpDiscoverRequest:
		return "DISCOVER_REQ"
	case OpAddAid:
		return "ADD_AID"
	case OpRemoveAid:
		return "REMOVE_AID"
	case OpUpdateNow:
		return "UPDATE_NOW"
	case OpForceRouting:
		return "FORCE_ROUTING"
	case OpClearRouting:
		return "CLEAR_ROUTING"
	case OpSetProtocolRoute:
		return "SET_PROTO_ROUTE"
	case OpSetTechRoute:
		return "SET_TECH_ROUTE"
	case OpSetHostListenTech:
		return "SET_HOST_LISTEN_TECH"
	case OpAddSystemCode:
		return "ADD_SYSTEM_CODE"
	case OpRemoveSystemCode:
		return "REMOVE_SYSTEM_CODE"
	default:
		return "UNKNOWN"
	}
}

// ClearMask selects which routing classes OpClearRouting clears.
type ClearMask uint8

const (
	ClearProtocol   ClearMask = 0x01
	ClearTech       ClearMask = 0x02
	ClearSystemCode ClearMask = 0x04

	ClearAll = ClearProtocol | ClearTech | ClearSystemCode
)

// Command is a routing command. Only the fields relevant to Op are used.
type Command struct {
	Op OpKind `cbor:"1,keyasint"`

	// Dest is the destination of route commands and the target of
	// OpModeSet / OpForceRouting.
	Dest route.Destination `cbor:"2,keyasint,omitempty"`

	// Protocol selects the protocol of OpSetProtocolRoute.
	Protocol route.ProtocolMask `cbor:"3,keyasint,omitempty"`

	// Tech selects the technology of OpSetTechRoute and the listen mask of
	// OpSetHostListenTech.
	Tech route.TechMask `cbor:"4,keyasint,omitempty"`

	// Power is the power-state bitmap of route commands.
	Power route.PowerState `cbor:"5,keyasint,omitempty"`

	// AID is the pattern of AID commands. Empty means the default entry.
	AID []byte `cbor:"6,keyasint,omitempty"`

	// Match is the qualifier of OpAddAid.
	Match route.MatchQualifier `cbor:"7,keyasint,omitempty"`

	// SystemCode is the system code of system-code commands.
	SystemCode uint16 `cbor:"8,keyasint,omitempty"`

	// Clear selects what OpClearRouting clears.
	Clear ClearMask `cbor:"9,keyasint,omitempty"`

	// Enable is the requested state of OpModeSet / OpForceRouting.
	Enable bool `cbor:"10,keyasint,omitempty"`

	// All makes OpRemoveAid remove every entry.
	All bool `cbor:"11,keyasint,omitempty"`
}

// String returns a compact description.
func (c Command) String() string {
	switch c.Op {
	case OpAddAid:
		return fmt.Sprintf("%s aid=%s match=%s dest=%s power=0x%02X", c.Op, aidString(c.AID), c.Match, c.Dest, uint8(c.Power))
	case OpRemoveAid:
		if c.All {
			return fmt.Sprintf("%s all", c.Op)
		}
		return fmt.Sprintf("%s aid=%s", c.Op, aidString(c.AID))
	case OpSetProtocolRoute:
		return fmt.Sprintf("%s proto=0x%02X dest=%s power=0x%02X", c.Op, uint8(c.Protocol), c.Dest, uint8(c.Power))
	case OpSetTechRoute:
		return fmt.Sprintf("%s tech=%s dest=%s power=0x%02X", c.Op, c.Tech, c.Dest, uint8(c.Power))
	case OpSetHostListenTech:
		return fmt.Sprintf("%s tech=%s", c.Op, c.Tech)
	case OpAddSystemCode, OpRemoveSystemCode:
		return fmt.Sprintf("%s sc=0x%04X dest=%s", c.Op, c.SystemCode, c.Dest)
	case OpClearRouting:
		return fmt.Sprintf("%s mask=0x%02X", c.Op, uint8(c.Clear))
	case OpModeSet, OpForceRouting:
		return fmt.Sprintf("%s dest=%s enable=%t", c.Op, c.Dest, c.Enable)
	default:
		return c.Op.String()
	}
}

func aidString(aid []byte) string {
	if len(aid) == 0 {
		return "<default>"
	}
	return hex.EncodeToString(aid)
}

// Status is the controller's verdict on a command.
type Status uint8

const (
	StatusOK Status = iota
	StatusFailed
	StatusNotSupported
	StatusRejected
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFailed:
		return "FAILED"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Err returns nil for StatusOK and a *StatusError otherwise.
func (s Status) Err(op OpKind) error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Op: op, Status: s}
}

// StatusError reports a non-OK completion.
type StatusError struct {
	Op     OpKind
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: controller returned %s", e.Op, e.Status)
}

// Unwrap maps the status onto ErrNotSupported or ErrCommandFailed.
func (e *StatusError) Unwrap() error {
	if e.Status == StatusNotSupported {
		return ErrNotSupported
	}
	return ErrCommandFailed
}

// Event is a completion emitted by the controller for one command.
type Event struct {
	Op     OpKind
	Status Status
}

// Transport carries commands to the controller. Send must not block on the
// completion; completions arrive later through Dispatcher.Deliver.
type Transport interface {
	Send(cmd Command) error
}
