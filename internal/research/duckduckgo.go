// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// duckduckgoAPIBase is the DuckDuckGo Instant Answer API endpoint.
// Package-level var for test substitution.
var duckduckgoAPIBase = "https://api.duckduckgo.com"

// DuckDuckGoBackend queries the DuckDuckGo Instant Answer API.
type DuckDuckGoBackend struct {
	Client *http.Client
}

// Name identifies the backend.
func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

// ddgResponse is the subset of the Instant Answer API response we use.
type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// ddgTopic is either a direct result or a named group of sub-topics.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// Lookup queries the API and formats the abstract plus related topics as
// numbered results. Empty results and HTTP failures come back as
// descriptive text, not errors, so the reasoner can adjust its query.
func (b *DuckDuckGoBackend) Lookup(ctx context.Context, query string, cfg types.ResearchConfig) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	endpoint := duckduckgoAPIBase + "/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 2)
	if err != nil {
		return "", fmt.Errorf("searching DuckDuckGo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error performing search: DuckDuckGo returned HTTP %d", resp.StatusCode), nil
	}

	var dr ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("decoding DuckDuckGo response: %w", err)
	}

	results := formatDDGResults(dr, maxResults(cfg))
	if results == "" {
		return fmt.Sprintf("No results found for query: %s", query), nil
	}
	return results, nil
}

// formatDDGResults renders the abstract and flattened related topics as
// numbered entries with title, URL, and snippet.
func formatDDGResults(dr ddgResponse, limit int) string {
	var entries []string

	if dr.AbstractText != "" {
		entries = append(entries, formatEntry(len(entries)+1, dr.Heading, dr.AbstractURL, dr.AbstractText))
	}

	for _, topic := range flattenTopics(dr.RelatedTopics) {
		if len(entries) >= limit {
			break
		}
		if topic.Text == "" {
			continue
		}
		entries = append(entries, formatEntry(len(entries)+1, "", topic.FirstURL, topic.Text))
	}

	return strings.Join(entries, "\n")
}

// flattenTopics expands grouped sub-topics into a flat list.
func flattenTopics(topics []ddgTopic) []ddgTopic {
	var flat []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

func formatEntry(rank int, title, entryURL, snippet string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "%d. %s\n", rank, title)
	} else {
		fmt.Fprintf(&b, "%d.\n", rank)
	}
	if entryURL != "" {
		fmt.Fprintf(&b, "   URL: %s\n", entryURL)
	}
	fmt.Fprintf(&b, "   %s\n", snippet)
	return b.String()
}

func maxResults(cfg types.ResearchConfig) int {
	if cfg.MaxResults <= 0 {
		return 5
	}
	return cfg.MaxResults
}
