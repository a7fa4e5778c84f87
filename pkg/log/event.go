package log

import (
	"time"
)

// Event represents a routing trace event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// CycleID identifies the commit cycle (UUID). Empty outside a commit.
	CycleID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates flow relative to the routing engine.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (one of these will be set).
	Command      *CommandEvent      `cbor:"10,keyasint,omitempty"` // Controller command or completion
	Notification *NotificationEvent `cbor:"11,keyasint,omitempty"` // Capability notification
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"` // Coordinator state
	Error        *ErrorEventData    `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of flow.
type Direction uint8

const (
	// DirectionIn indicates an event received from the controller.
	DirectionIn Direction = 0
	// DirectionOut indicates an event sent to the controller.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerController is the command/completion exchange.
	LayerController Layer = 0
	// LayerCapability is the capability notification path.
	LayerCapability Layer = 1
	// LayerCoordinator is the commit coordinator.
	LayerCoordinator Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerController:
		return "CONTROLLER"
	case LayerCapability:
		return "CAPABILITY"
	case LayerCoordinator:
		return "COORDINATOR"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command issued to the controller.
	CategoryCommand Category = 0
	// CategoryCompletion indicates a command completion.
	CategoryCompletion Category = 1
	// CategoryNotification indicates a capability notification.
	CategoryNotification Category = 2
	// CategoryState indicates a state change.
	CategoryState Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryCompletion:
		return "COMPLETION"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures a controller command or its completion.
type CommandEvent struct {
	// Op is the operation name (e.g. "ADD_AID").
	Op string `cbor:"1,keyasint"`

	// Detail is the human-readable command description.
	Detail string `cbor:"2,keyasint,omitempty"`

	// Dest is the destination id, if the command has one.
	Dest *uint8 `cbor:"3,keyasint,omitempty"`

	// Status is the completion status (completions only).
	Status string `cbor:"4,keyasint,omitempty"`

	// Payload is the CBOR encoding of the command (commands only).
	Payload []byte `cbor:"5,keyasint,omitempty"`
}

// EEState is one execution environment entry of a capability notification.
type EEState struct {
	ID    uint8 `cbor:"1,keyasint"`
	TechA uint8 `cbor:"2,keyasint,omitempty"`
	TechB uint8 `cbor:"3,keyasint,omitempty"`
	TechF uint8 `cbor:"4,keyasint,omitempty"`
}

// NotificationEvent captures a capability notification and its handling.
type NotificationEvent struct {
	// EEs is the reported snapshot.
	EEs []EEState `cbor:"1,keyasint,omitempty"`

	// Action is what the coordinator did with it.
	Action NotificationAction `cbor:"2,keyasint"`

	// Dropped lists ids whose technologies dropped to zero.
	Dropped []uint8 `cbor:"3,keyasint,omitempty"`
}

// NotificationAction is the handling of a capability notification.
type NotificationAction uint8

const (
	// ActionApplied indicates the snapshot was applied immediately.
	ActionApplied NotificationAction = 0
	// ActionDebounced indicates the snapshot was buffered.
	ActionDebounced NotificationAction = 1
	// ActionSuperseded indicates a buffered snapshot was discarded.
	ActionSuperseded NotificationAction = 2
	// ActionExpired indicates a buffered snapshot was applied by the timer.
	ActionExpired NotificationAction = 3
	// ActionUnchanged indicates the snapshot equalled the current one.
	ActionUnchanged NotificationAction = 4
)

// String returns the action name.
func (a NotificationAction) String() string {
	switch a {
	case ActionApplied:
		return "APPLIED"
	case ActionDebounced:
		return "DEBOUNCED"
	case ActionSuperseded:
		return "SUPERSEDED"
	case ActionExpired:
		return "EXPIRED"
	case ActionUnchanged:
		return "UNCHANGED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures coordinator state transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityRouting indicates a routing state (Clean/Dirty/Committing) change.
	StateEntityRouting StateEntity = 0
	// StateEntityMute indicates a mute bitmap change.
	StateEntityMute StateEntity = 1
	// StateEntitySecure indicates a secure mode change.
	StateEntitySecure StateEntity = 2
	// StateEntityCommit indicates a commit outcome.
	StateEntityCommit StateEntity = 3
	// StateEntityEE indicates an execution environment lifecycle change.
	StateEntityEE StateEntity = 4
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityRouting:
		return "ROUTING"
	case StateEntityMute:
		return "MUTE"
	case StateEntitySecure:
		return "SECURE"
	case StateEntityCommit:
		return "COMMIT"
	case StateEntityEE:
		return "EE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the controller status code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
