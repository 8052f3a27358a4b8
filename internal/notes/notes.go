// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notes persists raw research text under deterministic, sanitized
// filenames and maintains an optional SQLite full-text index over saved
// notes. A write failure is reported to the caller but is never allowed to
// abort an otherwise successful research run.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// maxLabelLen bounds the sanitized filename stem.
const maxLabelLen = 64

// Store writes notes to a fixed output directory. Each save derives its
// filename from the topic label; saving the same label again overwrites the
// previous note (last write wins, no versioning).
type Store struct {
	dir   string
	index *Index
}

// NewStore creates the output directory if needed and, when cfg.IndexDir is
// set, opens the notes index.
func NewStore(cfg types.NotesConfig) (*Store, error) {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "outputs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	s := &Store{dir: dir}

	if cfg.IndexDir != "" {
		idx, err := OpenIndex(cfg.IndexDir, cfg.MaxResults)
		if err != nil {
			return nil, err
		}
		s.index = idx
	}

	return s, nil
}

// Close releases the index, if one is open.
func (s *Store) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// Index returns the notes index, or nil when indexing is disabled.
func (s *Store) Index() *Index { return s.index }

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Save writes body as a plain-text note named after topicLabel and returns
// the path. The body is prefixed with a timestamp header so a note records
// when it was captured. Index failures do not fail the save; the note file
// is the durable artifact, the index is a convenience.
func (s *Store) Save(topicLabel, body string) (string, error) {
	name := Sanitize(topicLabel)
	path := filepath.Join(s.dir, name+".txt")

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n[%s]\n%s\n\n", strings.Repeat("=", 60),
		time.Now().UTC().Format(time.RFC3339), strings.Repeat("=", 60))
	b.WriteString(body)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing note %s: %w", path, err)
	}

	if s.index != nil {
		if err := s.index.Add(topicLabel, path, body); err != nil {
			fmt.Fprintf(os.Stderr, "warning: indexing note %s: %v\n", path, err)
		}
	}

	return path, nil
}

// Sanitize converts a topic label into a filesystem-safe filename stem:
// lowercase, runs of non-alphanumeric characters collapsed to single
// hyphens, truncated to a bounded length. An empty result becomes "note".
func Sanitize(label string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > maxLabelLen {
		name = strings.Trim(name[:maxLabelLen], "-")
	}
	if name == "" {
		return "note"
	}
	return name
}
