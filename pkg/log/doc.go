// Package log provides the routing trace.
//
// This package defines the Logger interface and Event types for capturing
// every command issued to the controller, every completion, every capability
// notification and every coordinator state change. It is separate from
// operational logging (slog): the trace is a complete machine-readable
// record for debugging routing decisions after the fact.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/data/nfc/routing.rtlog", log.WithMaxSize(1<<20))
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three layers:
//   - Controller: commands and completions (CommandEvent)
//   - Capability: notifications and their debounce handling (NotificationEvent)
//   - Coordinator: state changes and commit outcomes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type. Events emitted during a
// commit carry the cycle id of that commit.
//
// # File Format
//
// Trace files are a stream of CBOR records with the .rtlog extension.
// WithMaxSize keeps one rotated file next to the live one. A record cut
// short by a crash is reported by Reader.Next as ErrTruncated; the records
// before it remain readable. The lmrt-log CLI tool provides viewing,
// filtering and statistics.
package log
