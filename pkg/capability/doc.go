// Package capability tracks which execution environments the controller has
// discovered and which listen-mode technologies and protocols each supports.
//
// A Snapshot is replaced wholesale on every discovery notification; it is
// never patched in place. Cache guards the current snapshot with a single
// mutex because it is written from the controller's event path and read by
// route resolution.
package capability
