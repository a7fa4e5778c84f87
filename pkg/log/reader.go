package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated is returned by Reader.Next when the trace ends inside a
// record, as left behind by a process killed mid-write.
var ErrTruncated = errors.New("trace truncated")

// Filter selects trace events. Zero fields match everything.
type Filter struct {
	CycleID   string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Op and Dest only match command events.
	Op   string
	Dest *uint8
}

// Match reports whether event satisfies every criterion of f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.CycleID != "" && event.CycleID != f.CycleID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}

	if f.Op == "" && f.Dest == nil {
		return true
	}
	cmd := event.Command
	if cmd == nil {
		return false
	}
	if f.Op != "" && cmd.Op != f.Op {
		return false
	}
	return f.Dest == nil || (cmd.Dest != nil && *cmd.Dest == *f.Dest)
}

// Reader streams trace events.
type Reader struct {
	closer io.Closer
	dec    *cbor.Decoder
	filter Filter
	read   int
}

// NewReader opens the trace file at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the trace file at path, returning only events
// matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads events from r. Close does not close r.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{dec: NewDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the trace.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d records", ErrTruncated, r.read)
		default:
			return Event{}, fmt.Errorf("record %d: %w", r.read+1, err)
		}
		r.read++

		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
