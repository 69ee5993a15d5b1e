// Package view drives a single pass over one or more session logs: locate,
// read, classify, optionally keep the last N matches, and print.
package view

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"agentwatch/internal/format"
	"agentwatch/internal/model"
	"agentwatch/internal/parser"
	"agentwatch/internal/store"
)

// Options defines the configurable parameters for rendering a timeline.
type Options struct {
	// Paths are explicit session logs; empty means autodetect via Locate.
	Paths  []string
	Locate store.LocateOptions
	Filter model.Filter
	// Last keeps only the final N matches when positive.
	Last   int
	Format string
	Style  format.Style

	Stdin io.Reader
	Out   io.Writer
	// Warnings receives one line per skipped input line; nil suppresses them.
	Warnings io.Writer
	Logger   *slog.Logger
}

// Result summarises a completed run.
type Result struct {
	Paths    []string
	Matched  int
	Printed  int
	Warnings int
}

// Run renders the session timeline according to the provided options.
func Run(opts Options) (Result, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = format.FormatText
	}
	switch formatMode {
	case format.FormatText, format.FormatTable, format.FormatJSONL:
	default:
		return Result{}, fmt.Errorf("unsupported format: %s", opts.Format)
	}

	paths, err := store.Locate(opts.Paths, opts.Locate)
	if err != nil {
		return Result{}, err
	}
	if len(opts.Paths) == 0 {
		logger.Debug("autodetected session file", "path", paths[0])
	}

	result := Result{Paths: paths}

	processEvents := func(fn func(model.Event) error) error {
		readOpts := parser.ReadOptions{
			Stdin: opts.Stdin,
			OnWarning: func(err error) {
				result.Warnings++
				if opts.Warnings != nil {
					fmt.Fprintf(opts.Warnings, "warning: %v\n", err) //nolint:errcheck
				}
			},
		}
		for _, path := range paths {
			logger.Debug("loaded session file", "path", path)
			err := parser.IterateRecords(path, readOpts, func(rec parser.Record) error {
				for _, event := range parser.Classify(rec, opts.Filter) {
					result.Matched++
					if err := fn(event); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	if opts.Last <= 0 && formatMode != format.FormatTable {
		err := processEvents(func(event model.Event) error {
			result.Printed++
			return format.WriteEvents(opts.Out, []model.Event{event}, formatMode, opts.Style)
		})
		logger.Debug("run complete", "matched", result.Matched, "printed", result.Printed, "warnings", result.Warnings)
		return result, err
	}

	var events []model.Event
	if opts.Last > 0 {
		ring := newEventRing(opts.Last)
		if err := processEvents(func(event model.Event) error {
			ring.push(event)
			return nil
		}); err != nil {
			return result, err
		}
		events = ring.slice()
	} else {
		if err := processEvents(func(event model.Event) error {
			events = append(events, event)
			return nil
		}); err != nil {
			return result, err
		}
	}

	result.Printed = len(events)
	logger.Debug("run complete", "matched", result.Matched, "printed", result.Printed, "warnings", result.Warnings)
	return result, format.WriteEvents(opts.Out, events, formatMode, opts.Style)
}

// eventRing retains the most recent events up to its capacity; storage grows
// on demand.
type eventRing struct {
	data     []model.Event
	capacity int
	start    int
}

func newEventRing(capacity int) *eventRing {
	if capacity < 0 {
		capacity = 0
	}
	return &eventRing{capacity: capacity}
}

func (r *eventRing) push(event model.Event) {
	if r.capacity == 0 {
		return
	}
	if len(r.data) < r.capacity {
		r.data = append(r.data, event)
		return
	}
	r.data[r.start] = event
	r.start = (r.start + 1) % len(r.data)
}

func (r *eventRing) slice() []model.Event {
	if len(r.data) == 0 {
		return nil
	}
	result := make([]model.Event, 0, len(r.data))
	result = append(result, r.data[r.start:]...)
	return append(result, r.data[:r.start]...)
}
