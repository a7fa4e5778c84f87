// Package commit implements the commit coordinator: the owner of the
// listen-mode routing table.
//
// The coordinator tracks routing preferences, the capability snapshot of
// the discoverable execution environments, the mute bitmap and the secure
// mode flag. Any change to these marks the routing state Dirty; Commit then
// resolves every category against the current snapshot and pushes the
// result to the controller, one acknowledged command at a time, finishing
// with UPDATE_NOW.
//
// # States
//
//	Clean      --change------------> Dirty
//	Dirty      --Commit()----------> Committing
//	Committing --change------------> Dirty
//	Committing --UPDATE_NOW ack----> Clean
//	Committing --command failure---> Dirty
//
// A commit that observes a change while in flight finishes against the
// snapshot it started with; the state is left Dirty so the next commit
// picks up the newer input. Consistency is eventual, not atomic.
//
// # Capability Notifications
//
// Notifications and debounce timer expiries are serialized through a single
// event loop. A notification in which an execution environment's technology
// set drops to zero is buffered for DebounceDelay; any later notification
// supersedes it, otherwise the timer applies it.
//
// # Locking
//
// Hardware-facing operations are serialized by one mutex. The snapshot cache
// and the state each have their own mutex and are never held together.
// Shutdown takes neither: it releases every pending controller wait.
package commit
