// Package model provides the event and filter types shared by the session
// reader, the classifier and the formatters.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Mode tokens accepted on the command line.
const (
	ModeExec     = "exec"
	ModeThinking = "thinking"
	ModeWeb      = "web"
	ModeFetch    = "fetch"
	ModeFile     = "file"
	ModeAll      = "all"
)

var modeKinds = map[string][]Kind{
	ModeExec:     {KindExec},
	ModeThinking: {KindThinking},
	ModeWeb:      {KindWebSearch},
	ModeFetch:    {KindWebFetch},
	ModeFile:     {KindFile},
	ModeAll:      AllKinds,
}

// ValidModes returns the accepted mode tokens in a stable order.
func ValidModes() []string {
	return []string{ModeExec, ModeThinking, ModeWeb, ModeFetch, ModeFile, ModeAll}
}

// IsMode reports whether token names a mode, ignoring case.
func IsMode(token string) bool {
	_, ok := modeKinds[strings.ToLower(token)]
	return ok
}

// Filter is the set of kinds requested for display.
type Filter map[Kind]struct{}

// ParseModes converts mode tokens into a Filter. Unknown tokens are reported
// together in a single error.
func ParseModes(tokens []string) (Filter, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one mode is required (valid: %s)", strings.Join(ValidModes(), ", "))
	}

	filter := make(Filter, len(AllKinds))
	var unknown []string
	for _, token := range tokens {
		kinds, ok := modeKinds[strings.ToLower(strings.TrimSpace(token))]
		if !ok {
			unknown = append(unknown, token)
			continue
		}
		for _, kind := range kinds {
			filter[kind] = struct{}{}
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown mode(s): %s (valid: %s)", strings.Join(unknown, ", "), strings.Join(ValidModes(), ", "))
	}
	return filter, nil
}

// NewFilter builds a filter from kinds directly.
func NewFilter(kinds ...Kind) Filter {
	filter := make(Filter, len(kinds))
	for _, kind := range kinds {
		filter[kind] = struct{}{}
	}
	return filter
}

// Has reports whether kind is requested.
func (f Filter) Has(kind Kind) bool {
	_, ok := f[kind]
	return ok
}

// Kinds returns the requested kinds in priority order.
func (f Filter) Kinds() []Kind {
	kinds := make([]Kind, 0, len(f))
	for _, kind := range AllKinds {
		if f.Has(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
