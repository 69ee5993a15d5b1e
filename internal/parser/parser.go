// Package parser reads session JSONL logs and classifies each record into
// one of the agent action variants shown in the timeline.
package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// StdinPath is the path argument that selects standard input.
const StdinPath = "-"

const stdinSource = "<stdin>"

var (
	// ErrFileNotFound is returned when a session log path does not exist.
	ErrFileNotFound = errors.New("session file not found")

	errNotObject   = errors.New("record is not a JSON object")
	errLineTooLong = fmt.Errorf("line exceeds %d MiB", maxLineBytes>>20)
)

// maxLineBytes bounds a single record; longer lines are skipped with a warning.
const maxLineBytes = 8 * 1024 * 1024

// Record is one non-empty, well-formed line of a session log.
type Record struct {
	Source string
	Line   int
	Value  gjson.Result
}

// LineError reports a line that was skipped because it could not be decoded.
type LineError struct {
	Source string
	Line   int
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: invalid JSON: %v", e.Source, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ReadOptions configures IterateRecords.
type ReadOptions struct {
	// Stdin is read when the path is "-". Defaults to os.Stdin.
	Stdin io.Reader
	// OnWarning receives a *LineError for every skipped line. May be nil.
	OnWarning func(error)
}

// IterateRecords opens path and calls fn for every decodable record, in file
// order. Blank lines are ignored; malformed lines are reported through
// opts.OnWarning and skipped. The file is reopened on every call.
func IterateRecords(path string, opts ReadOptions, fn func(Record) error) error {
	reader, source, closeFn, err := open(path, opts.Stdin)
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck

	lines := newLineReader(reader)
	lineNo := 0
	for {
		recBytes, tooLong, err := lines.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read session %s: %w", source, err)
		}
		lineNo++

		if tooLong {
			warn(opts, &LineError{Source: source, Line: lineNo, Err: errLineTooLong})
			continue
		}
		if strings.TrimSpace(string(recBytes)) == "" {
			continue
		}

		value, err := decodeRecord(recBytes)
		if err != nil {
			warn(opts, &LineError{Source: source, Line: lineNo, Err: err})
			continue
		}

		if err := fn(Record{Source: source, Line: lineNo, Value: value}); err != nil {
			return err
		}
	}
}

func warn(opts ReadOptions, err error) {
	if opts.OnWarning != nil {
		opts.OnWarning(err)
	}
}

func open(path string, stdin io.Reader) (io.Reader, string, func() error, error) {
	if path == StdinPath {
		if stdin == nil {
			stdin = os.Stdin
		}
		return stdin, stdinSource, func() error { return nil }, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, "", nil, fmt.Errorf("open session file: %w", err)
	}
	return file, path, file.Close, nil
}

func decodeRecord(line []byte) (gjson.Result, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return gjson.Result{}, err
	}
	value := gjson.ParseBytes(probe)
	if !value.IsObject() {
		return gjson.Result{}, errNotObject
	}
	return value, nil
}

// lineReader splits input on newlines like bufio.ScanLines, but drains a
// line longer than maxLineBytes instead of failing the whole read.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its terminator. The slice is only valid
// until the following call. tooLong reports a discarded oversized line.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(lr.buf)+len(chunk) > maxLineBytes {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}
		if !isPrefix {
			return lr.buf, tooLong, nil
		}
	}
}
