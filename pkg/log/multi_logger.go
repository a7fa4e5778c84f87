package log

// MultiLogger fans events out to several loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log forwards event to every logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len returns the number of loggers events are forwarded to.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// FilteredLogger forwards only the events matching a Filter.
type FilteredLogger struct {
	next   Logger
	filter Filter
}

// NewFilteredLogger wraps next so that it only sees events matching f.
func NewFilteredLogger(next Logger, f Filter) *FilteredLogger {
	return &FilteredLogger{next: next, filter: f}
}

// Log forwards event if it matches.
func (l *FilteredLogger) Log(event Event) {
	if l.filter.Match(event) {
		l.next.Log(event)
	}
}

var (
	_ Logger = (*MultiLogger)(nil)
	_ Logger = (*FilteredLogger)(nil)
)
