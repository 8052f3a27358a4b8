// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research implements the concrete information-gathering tools the
// agent can invoke: a DuckDuckGo web search backend, a Wikipedia lookup
// backend, and a note-saving tool backed by the notes store. Every tool
// presents a bounded, synchronous call that returns plain text; failures
// come back as descriptive strings or errors the loop converts into failed
// observations, never as panics.
package research

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/research-agent/internal/notes"
	"github.com/pdiddy/research-agent/internal/tool"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Tool names as presented to the reasoner.
const (
	SearchToolName = "search_tool"
	WikiToolName   = "wiki_tool"
	NoteToolName   = "note_tool"
)

// Backend looks up information for a query and formats it as observation
// text. Each backend wraps one external API.
type Backend interface {
	Name() string
	Lookup(ctx context.Context, query string, cfg types.ResearchConfig) (string, error)
}

// Catalog builds the tool registry for a run: enabled search backends plus
// the note tool when a store is available. Registration order fixes the
// catalog order the reasoner sees.
func Catalog(cfg types.ResearchConfig, store *notes.Store, client *http.Client) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	if cfg.EnableDuckDuckGo {
		b := &DuckDuckGoBackend{Client: client}
		err := registry.Register(tool.Spec{
			Name: SearchToolName,
			Description: "Search DuckDuckGo for current information on a topic. " +
				"Use this for current events, recent developments, and web-based " +
				"information with multiple perspectives.",
			InputSchema: map[string]string{"query": "string"},
			Invoke: func(ctx context.Context, args map[string]any) (string, error) {
				query, err := stringArg(args, "query")
				if err != nil {
					return err.Error(), nil
				}
				return b.Lookup(ctx, query, cfg)
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.EnableWikipedia {
		b := &WikipediaBackend{Client: client}
		err := registry.Register(tool.Spec{
			Name: WikiToolName,
			Description: "Search Wikipedia for detailed, encyclopedic information " +
				"on a topic. Use this for historical information, scientific " +
				"concepts, and well-established facts.",
			InputSchema: map[string]string{"query": "string"},
			Invoke: func(ctx context.Context, args map[string]any) (string, error) {
				query, err := stringArg(args, "query")
				if err != nil {
					return err.Error(), nil
				}
				return b.Lookup(ctx, query, cfg)
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if store != nil {
		err := registry.Register(tool.Spec{
			Name: NoteToolName,
			Description: "Save research notes or findings to a text file for " +
				"future reference. Use this to store important findings and " +
				"keep track of sources.",
			InputSchema: map[string]string{"topic": "string", "text": "string"},
			Invoke: func(_ context.Context, args map[string]any) (string, error) {
				text, err := stringArg(args, "text")
				if err != nil {
					return err.Error(), nil
				}
				topic, _ := stringArg(args, "topic")
				if topic == "" {
					topic = "research-notes"
				}
				path, err := store.Save(topic, text)
				if err != nil {
					return fmt.Sprintf("Error saving note: %v", err), nil
				}
				return fmt.Sprintf("Successfully saved research notes to %q", path), nil
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// stringArg extracts a required string argument supplied by the reasoner.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("Error: missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("Error: argument %q must be a non-empty string", name)
	}
	return s, nil
}
