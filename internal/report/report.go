// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a validated research response as Markdown and
// persists run artifacts: the report itself and a YAML snapshot of the
// transcript that produced it.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/notes"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Render produces the Markdown report for a response.
func Render(resp types.ResearchResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report: %s\n\n", resp.Topic)
	fmt.Fprintf(&b, "_Generated %s_\n\n", time.Now().UTC().Format("2006-01-02 15:04 MST"))

	b.WriteString("## Summary\n\n")
	b.WriteString(resp.Summary)
	b.WriteString("\n\n")

	b.WriteString("## Sources\n\n")
	if len(resp.Sources) == 0 {
		b.WriteString("No sources reported.\n")
	} else {
		for _, src := range resp.Sources {
			fmt.Fprintf(&b, "- %s\n", src)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Tools Used\n\n")
	if len(resp.ToolsUsed) == 0 {
		b.WriteString("No tools were invoked.\n")
	} else {
		for _, name := range resp.ToolsUsed {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	return b.String()
}

// Write renders resp and saves it under dir as <topic>-report.md, returning
// the path.
func Write(dir string, resp types.ResearchResponse) (string, error) {
	path := filepath.Join(dir, notes.Sanitize(resp.Topic)+"-report.md")
	if err := os.WriteFile(path, []byte(Render(resp)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// transcriptSnapshot is the YAML shape of a persisted transcript.
type transcriptSnapshot struct {
	Topic      string       `yaml:"topic"`
	CapturedAt time.Time    `yaml:"captured_at"`
	Turns      []types.Turn `yaml:"turns"`
}

// WriteTranscript saves the run transcript under dir as
// <topic>-transcript.yaml, returning the path. The snapshot is a diagnostic
// artifact; nothing reads it back.
func WriteTranscript(dir, topic string, transcript []types.Turn) (string, error) {
	snapshot := transcriptSnapshot{
		Topic:      topic,
		CapturedAt: time.Now().UTC(),
		Turns:      transcript,
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encoding transcript: %w", err)
	}

	path := filepath.Join(dir, notes.Sanitize(topic)+"-transcript.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}
