package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

// csvHeader names the columns written by the csv exporter.
var csvHeader = []string{"timestamp", "cycle_id", "direction", "layer", "category", "type", "dest", "status"}

// RunExport converts the trace at path to jsonl or csv. An empty output
// writes to stdout.
func RunExport(path, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format %q (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer reader.Close()

	if output == "" {
		return export(reader, format, os.Stdout)
	}
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := export(reader, format, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return each(reader, func(e log.Event) error { return enc.Encode(e) })
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		err := each(reader, func(e log.Event) error { return cw.Write(csvRow(e)) })
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()
	}
	return fmt.Errorf("unknown format %q (supported: jsonl, csv)", format)
}

// each calls fn for every remaining event of reader.
func each(reader *log.Reader, fn func(log.Event) error) error {
	for n := 1; ; n++ {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return fmt.Errorf("event %d: %w", n, err)
		}
	}
}

func csvRow(e log.Event) []string {
	kind, dest, status := "unknown", "", ""
	if c := e.Command; c != nil {
		kind, status = c.Op, c.Status
		if c.Dest != nil {
			dest = fmt.Sprintf("0x%02X", *c.Dest)
		}
	} else if n := e.Notification; n != nil {
		kind, status = "notification", n.Action.String()
	} else if s := e.StateChange; s != nil {
		kind, status = "state", s.NewState
	} else if e.Error != nil {
		kind, status = "error", e.Error.Message
	}

	return []string{
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		e.CycleID,
		e.Direction.String(),
		e.Layer.String(),
		e.Category.String(),
		kind,
		dest,
		status,
	}
}
