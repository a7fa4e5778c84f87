package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Commands          map[string]int
	Outcomes          map[string]int
	Notifications     map[log.NotificationAction]int
	Cycles            map[string]*CycleStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// CycleStats holds statistics for a single commit cycle.
type CycleStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Commands  int
	Outcome   string
}

// Collect reads every event of the trace at path.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Commands:          make(map[string]int),
		Outcomes:          make(map[string]int),
		Notifications:     make(map[log.NotificationAction]int),
		Cycles:            make(map[string]*CycleStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Command != nil && event.Category == log.CategoryCommand {
		s.Commands[event.Command.Op]++
	}
	if event.Notification != nil {
		s.Notifications[event.Notification.Action]++
	}
	if event.Error != nil {
		s.Errors++
	}

	if event.CycleID == "" {
		return
	}
	cycle, ok := s.Cycles[event.CycleID]
	if !ok {
		cycle = &CycleStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Cycles[event.CycleID] = cycle
	}
	if event.Timestamp.After(cycle.LastSeen) {
		cycle.LastSeen = event.Timestamp
	}
	if event.Command != nil && event.Category == log.CategoryCommand {
		cycle.Commands++
	}
	if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntityCommit {
		cycle.Outcome = sc.NewState
		s.Outcomes[sc.NewState]++
	}
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Routing Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerController, log.LayerCapability, log.LayerCoordinator} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryCommand, log.CategoryCompletion, log.CategoryNotification, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Commands) > 0 {
		fmt.Fprintln(w, "Commands:")
		for _, op := range sortedKeys(stats.Commands) {
			fmt.Fprintf(w, "  %-20s %d\n", op+":", stats.Commands[op])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Notifications) > 0 {
		fmt.Fprintln(w, "Notifications:")
		for _, a := range []log.NotificationAction{log.ActionApplied, log.ActionDebounced, log.ActionSuperseded, log.ActionExpired, log.ActionUnchanged} {
			if count := stats.Notifications[a]; count > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", a.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Commit Cycles: %d\n", len(stats.Cycles))
	for _, outcome := range sortedKeys(stats.Outcomes) {
		fmt.Fprintf(w, "  %-14s %d\n", outcome+":", stats.Outcomes[outcome])
	}

	if len(stats.Cycles) > 0 {
		type cycleInfo struct {
			id    string
			stats *CycleStats
		}
		cycles := make([]cycleInfo, 0, len(stats.Cycles))
		for id, cs := range stats.Cycles {
			cycles = append(cycles, cycleInfo{id, cs})
		}
		sort.Slice(cycles, func(i, j int) bool {
			return cycles[i].stats.FirstSeen.Before(cycles[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range cycles {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Microsecond)
			fmt.Fprintf(w, "  [%s] %s, %d commands, %s\n", shortenCycleID(c.id), c.stats.Outcome, c.stats.Commands, duration)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
