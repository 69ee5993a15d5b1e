package model

// Kind identifies the category of an agent action shown in the timeline.
type Kind string

const (
	KindExec      Kind = "exec"
	KindThinking  Kind = "thinking"
	KindWebSearch Kind = "web_search"
	KindWebFetch  Kind = "web_fetch"
	KindFile      Kind = "file"
)

// AllKinds lists every kind in classification priority order.
var AllKinds = []Kind{KindThinking, KindExec, KindWebSearch, KindWebFetch, KindFile}

// UnknownTimestamp is displayed when a record carries no usable timestamp.
const UnknownTimestamp = "UNKNOWN_TIME"

// Event is a single matched agent action ready for display.
type Event struct {
	Timestamp string // verbatim from the record
	Kind      Kind
	Action    string // tool name for file events: read, write or edit
	Payload   string

	Source string // file the record was read from, "<stdin>" for stdin
	Line   int    // 1-based line number within Source
}
