package format

import (
	"strings"

	"agentwatch/internal/model"

	"github.com/mattn/go-runewidth"
)

// Style carries rendering choices decided once per run.
type Style struct {
	Color        bool
	KeepNewlines bool
	// MaxWidth caps the display width of payloads in text output; 0 disables.
	MaxWidth int
	// TableWidth is the total width available to table output; 0 means 80.
	TableWidth int
}

// RenderLine returns the text-mode line for an event, without trailing
// newline: timestamp, kind label and payload separated by tabs.
func RenderLine(event model.Event, style Style) string {
	payload := renderPayload(event.Payload, style)
	if style.MaxWidth > 0 {
		payload = runewidth.Truncate(payload, style.MaxWidth, "…")
	}

	return strings.Join([]string{
		colorize(style.Color, ansiTimestamp, event.Timestamp),
		colorize(style.Color, kindColor(event.Kind), string(event.Kind)),
		payload,
	}, "\t")
}

func renderPayload(payload string, style Style) string {
	if style.KeepNewlines {
		return payload
	}
	return escapeNewlines(payload)
}

// escapeNewlines keeps an event on one output line.
func escapeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\n", "\\n")
}
