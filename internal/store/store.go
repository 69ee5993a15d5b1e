// Package store resolves which session log to read, either from an explicit
// path or from the runtime's session index.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultSessionKey identifies the main agent's main session slot.
const DefaultSessionKey = "agent:main:main"

var (
	// ErrIndexNotFound is returned when the session index file does not exist.
	ErrIndexNotFound = errors.New("session index not found")
	// ErrAgentNotFound is returned when the index has no usable entry for the key.
	ErrAgentNotFound = errors.New("session key not found in index")
	// ErrMalformedIndex is returned when the index or its entry cannot be used.
	ErrMalformedIndex = errors.New("malformed session index")
)

// DefaultIndexPath returns ~/.openclaw/agents/main/sessions/sessions.json.
func DefaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".openclaw", "agents", "main", "sessions", "sessions.json")
}

// Index is the decoded session index: key to raw entry object.
type Index map[string]json.RawMessage

// IndexEntry is a single slot in the session index.
type IndexEntry struct {
	Key         string
	SessionID   string
	SessionFile string
	UpdatedAt   time.Time
}

type rawEntry struct {
	SessionID   json.RawMessage `json:"sessionId"`
	SessionFile json.RawMessage `json:"sessionFile"`
	UpdatedAt   json.RawMessage `json:"updatedAt"`
}

// LocateOptions controls session autodetection.
type LocateOptions struct {
	IndexPath  string
	SessionKey string
}

// Locate returns paths unchanged when any are given, otherwise the session
// file referenced by the index entry for opts.SessionKey.
func Locate(paths []string, opts LocateOptions) ([]string, error) {
	if len(paths) > 0 {
		return paths, nil
	}
	path, err := Autodetect(opts)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// Autodetect runs the index lookup chain: read index, find key, extract
// sessionFile. The returned path is not checked for existence.
func Autodetect(opts LocateOptions) (string, error) {
	indexPath := opts.IndexPath
	if indexPath == "" {
		indexPath = DefaultIndexPath()
	}
	key := opts.SessionKey
	if key == "" {
		key = DefaultSessionKey
	}

	index, err := ReadIndex(indexPath)
	if err != nil {
		return "", err
	}
	entry, err := LookupSession(index, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", indexPath, err)
	}
	return entry.SessionFile, nil
}

// ReadIndex loads and decodes the session index at path.
func ReadIndex(path string) (Index, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: cannot determine home directory", ErrIndexNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("read session index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIndex, path, err)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: %s: not a JSON object", ErrMalformedIndex, path)
	}
	return index, nil
}

// LookupSession extracts the entry for key from the index.
func LookupSession(index Index, key string) (IndexEntry, error) {
	raw, ok := index[key]
	if !ok {
		return IndexEntry{}, fmt.Errorf("%w: %q", ErrAgentNotFound, key)
	}

	entry, err := decodeEntry(key, raw)
	if err != nil {
		return IndexEntry{}, err
	}
	if entry.SessionFile == "" {
		return IndexEntry{}, fmt.Errorf("%w: %q has no sessionFile", ErrMalformedIndex, key)
	}
	return entry, nil
}

// Entries returns every decodable index entry, most recently updated first.
// Entries that are not objects are reported as warnings.
func Entries(index Index) ([]IndexEntry, []error) {
	var (
		entries  []IndexEntry
		warnings []error
	)
	for key, raw := range index {
		entry, err := decodeEntry(key, raw)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Error() < warnings[j].Error() })
	return entries, warnings
}

func decodeEntry(key string, raw json.RawMessage) (IndexEntry, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return IndexEntry{}, fmt.Errorf("%w: %q is not an object", ErrAgentNotFound, key)
	}

	var entry rawEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %q: %v", ErrMalformedIndex, key, err)
	}

	result := IndexEntry{Key: key}
	var sessionID string
	if err := json.Unmarshal(entry.SessionID, &sessionID); err == nil {
		result.SessionID = sessionID
	}
	var updatedMillis float64
	if err := json.Unmarshal(entry.UpdatedAt, &updatedMillis); err == nil && updatedMillis > 0 {
		result.UpdatedAt = time.UnixMilli(int64(updatedMillis)).UTC()
	}
	if len(entry.SessionFile) > 0 {
		var file string
		if err := json.Unmarshal(entry.SessionFile, &file); err != nil {
			return IndexEntry{}, fmt.Errorf("%w: %q sessionFile is not a string", ErrMalformedIndex, key)
		}
		result.SessionFile = strings.TrimSpace(file)
	}
	return result, nil
}
