package parser

import (
	"strings"

	"agentwatch/internal/model"

	"github.com/tidwall/gjson"
)

// Tool names recognised in toolCall records.
const (
	ToolExec      = "exec"
	ToolWebSearch = "web_search"
	ToolWebFetch  = "web_fetch"
	ToolRead      = "read"
	ToolWrite     = "write"
	ToolEdit      = "edit"
)

const (
	recordTypeThinking = "thinking"
	recordTypeMessage  = "message"
	itemTypeToolCall   = "toolCall"
)

// Keys consulted, in order, for the path of a file operation.
var filePathKeys = []string{"path", "file_path", "filepath", "filename", "target"}

// Variant is the typed shape a record decodes to.
type Variant interface {
	// Kind returns the event kind, or "" for Unrecognized.
	Kind() model.Kind
	// Payload returns the text displayed for the event.
	Payload() string
}

// Thinking is a reasoning block.
type Thinking struct{ Text string }

// Exec is a shell command execution.
type Exec struct{ Command string }

// WebSearch is a web search query.
type WebSearch struct{ Query string }

// WebFetch is a URL fetch.
type WebFetch struct{ URL string }

// FileOp is a read, write or edit of a file.
type FileOp struct {
	Action string
	Path   string
}

// Unrecognized is any record matching no requested variant.
type Unrecognized struct{}

func (v Thinking) Kind() model.Kind     { return model.KindThinking }
func (v Exec) Kind() model.Kind         { return model.KindExec }
func (v WebSearch) Kind() model.Kind    { return model.KindWebSearch }
func (v WebFetch) Kind() model.Kind     { return model.KindWebFetch }
func (v FileOp) Kind() model.Kind       { return model.KindFile }
func (v Unrecognized) Kind() model.Kind { return "" }

func (v Thinking) Payload() string     { return v.Text }
func (v Exec) Payload() string         { return v.Command }
func (v WebSearch) Payload() string    { return v.Query }
func (v WebFetch) Payload() string     { return v.URL }
func (v FileOp) Payload() string       { return v.Path }
func (v Unrecognized) Payload() string { return "" }

// shape holds the fields the rules inspect, taken either from a flat record
// or from one content item of a message envelope.
type shape struct {
	typ      string
	thinking string
	tool     string
	args     gjson.Result
}

type rule struct {
	kind  model.Kind
	match func(shape) (Variant, bool)
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{model.KindThinking, func(s shape) (Variant, bool) {
		if s.typ != recordTypeThinking {
			return nil, false
		}
		return Thinking{Text: strings.TrimSpace(s.thinking)}, true
	}},
	{model.KindExec, func(s shape) (Variant, bool) {
		if s.tool != ToolExec {
			return nil, false
		}
		return Exec{Command: stringArg(s.args, "command")}, true
	}},
	{model.KindWebSearch, func(s shape) (Variant, bool) {
		if s.tool != ToolWebSearch {
			return nil, false
		}
		return WebSearch{Query: stringArg(s.args, "query")}, true
	}},
	{model.KindWebFetch, func(s shape) (Variant, bool) {
		if s.tool != ToolWebFetch {
			return nil, false
		}
		return WebFetch{URL: stringArg(s.args, "url")}, true
	}},
	{model.KindFile, func(s shape) (Variant, bool) {
		switch s.tool {
		case ToolRead, ToolWrite, ToolEdit:
			return FileOp{Action: s.tool, Path: stringArg(s.args, filePathKeys...)}, true
		}
		return nil, false
	}},
}

// Classify returns the events a record yields under filter. A flat record
// yields at most one event: the first rule that both matches the record and
// names a requested kind. A message envelope is classified item by item.
func Classify(rec Record, filter model.Filter) []model.Event {
	timestamp := recordTimestamp(rec.Value)

	shapes := []shape{recordShape(rec.Value)}
	if items := envelopeItems(rec.Value); items != nil {
		shapes = shapes[:0]
		for _, item := range items {
			shapes = append(shapes, itemShape(item))
		}
	}

	var events []model.Event
	for _, s := range shapes {
		v := decode(s, filter)
		if _, skip := v.(Unrecognized); skip {
			continue
		}
		event := model.Event{
			Timestamp: timestamp,
			Kind:      v.Kind(),
			Payload:   v.Payload(),
			Source:    rec.Source,
			Line:      rec.Line,
		}
		if op, isFile := v.(FileOp); isFile {
			event.Action = op.Action
		}
		events = append(events, event)
	}
	return events
}

// decode returns the highest-priority variant of s among the kinds in
// filter, or Unrecognized.
func decode(s shape, filter model.Filter) Variant {
	for _, r := range rules {
		if !filter.Has(r.kind) {
			continue
		}
		if v, ok := r.match(s); ok {
			return v
		}
	}
	return Unrecognized{}
}

func recordShape(value gjson.Result) shape {
	toolCall := value.Get("toolCall")
	return shape{
		typ:      stringField(value.Get("type")),
		thinking: stringField(value.Get("thinking")),
		tool:     stringField(toolCall.Get("name")),
		args:     toolCall.Get("arguments"),
	}
}

func itemShape(item gjson.Result) shape {
	s := shape{
		typ:      stringField(item.Get("type")),
		thinking: stringField(item.Get("thinking")),
	}
	if s.typ == itemTypeToolCall {
		s.tool = stringField(item.Get("name"))
		s.args = item.Get("arguments")
	}
	return s
}

func envelopeItems(value gjson.Result) []gjson.Result {
	if stringField(value.Get("type")) != recordTypeMessage {
		return nil
	}
	content := value.Get("message.content")
	if !content.IsArray() {
		return nil
	}
	items := content.Array()
	if items == nil {
		items = []gjson.Result{}
	}
	return items
}

func recordTimestamp(value gjson.Result) string {
	for _, path := range []string{"timestamp", "message.timestamp"} {
		ts := value.Get(path)
		switch ts.Type {
		case gjson.String:
			if strings.TrimSpace(ts.Str) != "" {
				return ts.Str
			}
		case gjson.Number:
			return ts.Raw
		}
	}
	return model.UnknownTimestamp
}

// stringArg returns the first non-blank string argument among keys.
func stringArg(args gjson.Result, keys ...string) string {
	if !args.IsObject() {
		return ""
	}
	for _, key := range keys {
		if s := strings.TrimSpace(stringField(args.Get(key))); s != "" {
			return s
		}
	}
	return ""
}

func stringField(value gjson.Result) string {
	if value.Type != gjson.String {
		return ""
	}
	return value.Str
}
