// Package format renders matched events and session index entries.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"agentwatch/internal/model"
	"agentwatch/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Output formats for events.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSONL = "jsonl"
)

// minPayloadWidth bounds how narrow the table payload column may get.
const minPayloadWidth = 20

// WriteEvents writes events to w in the requested format.
func WriteEvents(w io.Writer, events []model.Event, format string, style Style) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return writeEventsText(w, events, style)
	case FormatTable:
		return writeEventsTable(w, events, style)
	case FormatJSONL:
		return writeEventsJSONL(w, events)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeEventsText(w io.Writer, events []model.Event, style Style) error {
	for _, event := range events {
		if _, err := fmt.Fprintln(w, RenderLine(event, style)); err != nil {
			return err
		}
	}
	return nil
}

type eventRecord struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Action    string `json:"action,omitempty"`
	Payload   string `json:"payload"`
	Source    string `json:"source,omitempty"`
	Line      int    `json:"line,omitempty"`
}

func writeEventsJSONL(w io.Writer, events []model.Event) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, event := range events {
		rec := eventRecord{
			Timestamp: event.Timestamp,
			Kind:      string(event.Kind),
			Action:    event.Action,
			Payload:   event.Payload,
			Source:    event.Source,
			Line:      event.Line,
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeEventsTable(w io.Writer, events []model.Event, style Style) error {
	width := style.TableWidth
	if width <= 0 {
		width = defaultColumns
	}
	tsWidth, kindWidth := len("Timestamp"), len("Kind")
	for _, event := range events {
		tsWidth = max(tsWidth, text.RuneWidthWithoutEscSequences(event.Timestamp))
		kindWidth = max(kindWidth, len(event.Kind))
	}
	// Borders and padding of a three-column rounded table take 10 cells.
	payloadWidth := max(minPayloadWidth, width-tsWidth-kindWidth-10)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: payloadWidth},
	})

	tw.AppendHeader(table.Row{"Timestamp", "Kind", "Payload"})
	for _, event := range events {
		tw.AppendRow(table.Row{
			colorize(style.Color, ansiTimestamp, event.Timestamp),
			colorize(style.Color, kindColor(event.Kind), string(event.Kind)),
			renderPayload(event.Payload, style),
		})
	}

	if len(events) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(no matching events)"})
	}

	_ = tw.Render()
	return nil
}

// WriteSessions writes session index entries to w in the requested format:
// table, plain, json or jsonl.
func WriteSessions(w io.Writer, items []store.IndexEntry, includeHeader bool, format string) error {
	format = strings.ToLower(format)
	switch format {
	case "", "table":
		return writeSessionsTable(w, items, includeHeader)
	case "plain":
		return writeSessionsPlain(w, items, includeHeader)
	case "json":
		return writeSessionsJSON(w, items)
	case "jsonl":
		return writeSessionsJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

type sessionRecord struct {
	Key         string `json:"key"`
	SessionID   string `json:"session_id,omitempty"`
	SessionFile string `json:"session_file"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func toSessionRecord(item store.IndexEntry) sessionRecord {
	return sessionRecord{
		Key:         item.Key,
		SessionID:   item.SessionID,
		SessionFile: item.SessionFile,
		UpdatedAt:   formatUpdated(item.UpdatedAt),
	}
}

func formatUpdated(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(time.RFC3339)
}

func writeSessionsPlain(w io.Writer, items []store.IndexEntry, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "key\tsession_id\tupdated_at\tsession_file"); err != nil {
			return err
		}
	}

	for _, item := range items {
		updated := formatUpdated(item.UpdatedAt)
		if updated == "" {
			updated = "-"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", item.Key, item.SessionID, updated, item.SessionFile)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsJSON(w io.Writer, items []store.IndexEntry) error {
	records := make([]sessionRecord, 0, len(items))
	for _, item := range items {
		records = append(records, toSessionRecord(item))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeSessionsJSONL(w io.Writer, items []store.IndexEntry) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(toSessionRecord(item)); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsTable(w io.Writer, items []store.IndexEntry, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Key", "Session ID", "Updated", "Session File"})
	}

	for _, item := range items {
		updated := formatUpdated(item.UpdatedAt)
		if updated == "" {
			updated = "-"
		}
		tw.AppendRow(table.Row{item.Key, item.SessionID, updated, item.SessionFile})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "(no sessions)", "-", "-"})
	}

	_ = tw.Render()
	return nil
}
