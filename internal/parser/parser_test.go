package parser

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"agentwatch/internal/model"

	"github.com/tidwall/gjson"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata", "sessions"}, parts...)
	return filepath.Join(elems...)
}

func collect(t *testing.T, path string, opts ReadOptions) []Record {
	t.Helper()
	var records []Record
	err := IterateRecords(path, opts, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("IterateRecords returned error: %v", err)
	}
	return records
}

func TestIterateRecordsSkipsBlankAndMalformedLines(t *testing.T) {
	var warnings []error
	records := collect(t, fixturePath("sample.jsonl"), ReadOptions{
		OnWarning: func(err error) { warnings = append(warnings, err) },
	})

	if len(records) != 9 {
		t.Fatalf("expected 9 records, got %d", len(records))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}

	var lineErr *LineError
	if !errors.As(warnings[0], &lineErr) {
		t.Fatalf("expected *LineError, got %T", warnings[0])
	}
	if lineErr.Line != 5 {
		t.Fatalf("expected malformed line 5, got %d", lineErr.Line)
	}
	if !strings.Contains(lineErr.Error(), "sample.jsonl:5: invalid JSON") {
		t.Fatalf("unexpected warning text: %s", lineErr.Error())
	}

	if records[2].Line != 4 {
		t.Fatalf("line numbers should count blank lines, got %d", records[2].Line)
	}
}

func TestIterateRecordsRestartable(t *testing.T) {
	path := fixturePath("sample.jsonl")
	first := collect(t, path, ReadOptions{})
	second := collect(t, path, ReadOptions{})
	if len(first) != len(second) {
		t.Fatalf("second pass returned %d records, first %d", len(second), len(first))
	}
}

func TestIterateRecordsFileNotFound(t *testing.T) {
	err := IterateRecords(fixturePath("missing.jsonl"), ReadOptions{}, func(Record) error { return nil })
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestIterateRecordsStdin(t *testing.T) {
	input := "{\"timestamp\":\"t1\",\"toolCall\":{\"name\":\"exec\",\"arguments\":{\"command\":\"id\"}}}\n[1,2]\n"
	var warnings []error
	records := collect(t, StdinPath, ReadOptions{
		Stdin:     strings.NewReader(input),
		OnWarning: func(err error) { warnings = append(warnings, err) },
	})

	if len(records) != 1 || records[0].Source != "<stdin>" {
		t.Fatalf("unexpected stdin records: %+v", records)
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], errNotObject) {
		t.Fatalf("expected non-object warning, got %v", warnings)
	}
}

func TestIterateRecordsSkipsOversizedLine(t *testing.T) {
	huge := `{"type":"thinking","thinking":"` + strings.Repeat("x", maxLineBytes+1024) + `"}`
	input := strings.Join([]string{
		`{"timestamp":"a","toolCall":{"name":"exec","arguments":{"command":"id"}}}`,
		huge,
		`{"timestamp":"b","toolCall":{"name":"exec","arguments":{"command":"uptime"}}}`,
	}, "\n")

	var warnings []error
	records := collect(t, StdinPath, ReadOptions{
		Stdin:     strings.NewReader(input),
		OnWarning: func(err error) { warnings = append(warnings, err) },
	})

	if len(records) != 2 || records[1].Line != 3 {
		t.Fatalf("expected records on lines 1 and 3, got %+v", records)
	}
	if records[1].Value.Get("toolCall.arguments.command").String() != "uptime" {
		t.Fatalf("record after the oversized line was not read intact: %s", records[1].Value.Raw)
	}
	var lineErr *LineError
	if len(warnings) != 1 || !errors.As(warnings[0], &lineErr) || lineErr.Line != 2 || !errors.Is(warnings[0], errLineTooLong) {
		t.Fatalf("expected one too-long warning for line 2, got %v", warnings)
	}
}

func TestIterateRecordsCRLF(t *testing.T) {
	input := "{\"timestamp\":\"a\",\"type\":\"thinking\",\"thinking\":\"x\"}\r\n\r\n{\"timestamp\":\"b\",\"type\":\"thinking\",\"thinking\":\"y\"}"
	records := collect(t, StdinPath, ReadOptions{Stdin: strings.NewReader(input)})
	if len(records) != 2 || records[1].Line != 3 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestIterateRecordsStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	count := 0
	err := IterateRecords(fixturePath("sample.jsonl"), ReadOptions{}, func(Record) error {
		count++
		return stop
	})
	if !errors.Is(err, stop) || count != 1 {
		t.Fatalf("expected iteration to stop after first record, count=%d err=%v", count, err)
	}
}

func classifyAll(t *testing.T, path string, filter model.Filter) []model.Event {
	t.Helper()
	var events []model.Event
	for _, rec := range collect(t, path, ReadOptions{}) {
		events = append(events, Classify(rec, filter)...)
	}
	return events
}

func TestClassifyAllKinds(t *testing.T) {
	events := classifyAll(t, fixturePath("sample.jsonl"), model.NewFilter(model.AllKinds...))

	want := []struct {
		kind    model.Kind
		payload string
	}{
		{model.KindThinking, "Plan:\ncheck disk"},
		{model.KindExec, "df -h"},
		{model.KindWebSearch, "golang bufio scanner"},
		{model.KindWebFetch, "https://go.dev/doc"},
		{model.KindFile, "/etc/hosts"},
		{model.KindFile, "/tmp/out.txt"},
		{model.KindExec, ""},
		{model.KindThinking, "both"},
	}

	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i].Kind != w.kind || events[i].Payload != w.payload {
			t.Fatalf("event %d: expected %s %q, got %s %q", i, w.kind, w.payload, events[i].Kind, events[i].Payload)
		}
	}
	if events[4].Action != ToolRead || events[5].Action != ToolWrite {
		t.Fatalf("file actions not recorded: %q %q", events[4].Action, events[5].Action)
	}
	if events[0].Timestamp != "2026-02-01T10:00:00Z" {
		t.Fatalf("timestamp should be verbatim, got %q", events[0].Timestamp)
	}
}

func TestClassifyPriority(t *testing.T) {
	rec := Record{Value: gjson.Parse(`{"timestamp":"t","type":"thinking","thinking":"hmm","toolCall":{"name":"exec","arguments":{"command":"ls"}}}`)}

	events := Classify(rec, model.NewFilter(model.KindThinking, model.KindExec))
	if len(events) != 1 || events[0].Kind != model.KindThinking {
		t.Fatalf("expected a single thinking event, got %+v", events)
	}

	events = Classify(rec, model.NewFilter(model.KindExec))
	if len(events) != 1 || events[0].Kind != model.KindExec || events[0].Payload != "ls" {
		t.Fatalf("expected exec when thinking is not requested, got %+v", events)
	}

	all := model.NewFilter(model.AllKinds...)
	if _, ok := decode(recordShape(rec.Value), all).(Thinking); !ok {
		t.Fatalf("decode should prefer thinking, got %T", decode(recordShape(rec.Value), all))
	}
}

func TestClassifyUnknownTool(t *testing.T) {
	rec := Record{Value: gjson.Parse(`{"timestamp":"t","toolCall":{"name":"unknown_tool","arguments":{"path":"/x"}}}`)}
	if events := Classify(rec, model.NewFilter(model.AllKinds...)); len(events) != 0 {
		t.Fatalf("unknown tool should not match, got %+v", events)
	}
	if v := decode(recordShape(rec.Value), model.NewFilter(model.AllKinds...)); v != (Unrecognized{}) {
		t.Fatalf("expected Unrecognized variant, got %#v", v)
	}
}

func TestClassifyFilterExcludes(t *testing.T) {
	events := classifyAll(t, fixturePath("sample.jsonl"), model.NewFilter(model.KindWebFetch))
	if len(events) != 1 || events[0].Payload != "https://go.dev/doc" {
		t.Fatalf("expected only the fetch event, got %+v", events)
	}
}

func TestClassifyMissingPayloadFields(t *testing.T) {
	cases := map[string]string{
		"exec no args":      `{"timestamp":"t","toolCall":{"name":"exec"}}`,
		"exec number":       `{"timestamp":"t","toolCall":{"name":"exec","arguments":{"command":7}}}`,
		"args not object":   `{"timestamp":"t","toolCall":{"name":"web_search","arguments":"q"}}`,
		"thinking no field": `{"timestamp":"t","type":"thinking"}`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			events := Classify(Record{Value: gjson.Parse(line)}, model.NewFilter(model.AllKinds...))
			if len(events) != 1 {
				t.Fatalf("expected one event, got %+v", events)
			}
			if events[0].Payload != "" {
				t.Fatalf("expected empty payload, got %q", events[0].Payload)
			}
		})
	}
}

func TestClassifyMessageEnvelopes(t *testing.T) {
	events := classifyAll(t, fixturePath("envelope.jsonl"), model.NewFilter(model.AllKinds...))

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}
	wantKinds := []model.Kind{model.KindThinking, model.KindExec, model.KindFile, model.KindWebFetch}
	for i, kind := range wantKinds {
		if events[i].Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, events[i].Kind)
		}
	}
	if events[1].Payload != "ls -la" || events[2].Payload != "main.go" || events[2].Action != ToolEdit {
		t.Fatalf("unexpected envelope payloads: %+v", events)
	}
	if events[0].Timestamp != "2026-02-02T09:00:01Z" {
		t.Fatalf("envelope items should inherit the record timestamp, got %q", events[0].Timestamp)
	}
	if events[3].Timestamp != "1770022803000" {
		t.Fatalf("expected message.timestamp fallback, got %q", events[3].Timestamp)
	}
}

func TestRecordTimestampUnknown(t *testing.T) {
	if got := recordTimestamp(gjson.Parse(`{"type":"thinking"}`)); got != model.UnknownTimestamp {
		t.Fatalf("expected %s, got %q", model.UnknownTimestamp, got)
	}
}
