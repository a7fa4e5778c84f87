// Package controller models the NFC controller as seen by the routing
// engine: an opaque API that accepts routing commands and later emits one
// completion event per command.
//
// # Request/Future Correlation
//
// Commands are issued through a Dispatcher. Issue hands the command to the
// Transport and returns a Pending handle; the transport's event path calls
// Dispatcher.Deliver with each completion, which resolves the oldest
// outstanding handle of the same operation kind. Callers block in
// Pending.Wait (no timeout, used for routing operations) or
// Pending.WaitTimeout (used for execution environment lifecycle
// operations).
//
// # Shutdown
//
// Dispatcher.Shutdown resolves every outstanding handle with ErrShutdown so
// that an unresponsive controller cannot hang teardown. Commands issued after
// shutdown fail immediately.
package controller
