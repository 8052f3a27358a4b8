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

// wikipediaAPIBase is the Wikipedia REST API root. Package-level var for
// test substitution.
var wikipediaAPIBase = "https://en.wikipedia.org/api/rest_v1"

// WikipediaBackend fetches article summaries from the Wikipedia REST API.
type WikipediaBackend struct {
	Client *http.Client
}

// Name identifies the backend.
func (b *WikipediaBackend) Name() string { return "wikipedia" }

// wikiSummary is the subset of the page summary response we use.
type wikiSummary struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Extract string `json:"extract"`
	Content struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Lookup fetches the page summary for the query. A missing article or a
// disambiguation page comes back as descriptive text so the reasoner can
// refine its query.
func (b *WikipediaBackend) Lookup(ctx context.Context, query string, cfg types.ResearchConfig) (string, error) {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	endpoint := wikipediaAPIBase + "/page/summary/" + url.PathEscape(title)

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
		return "", fmt.Errorf("querying Wikipedia: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Sprintf("No Wikipedia article found for: %s", query), nil
	default:
		return fmt.Sprintf("Error querying Wikipedia: HTTP %d", resp.StatusCode), nil
	}

	var summary wikiSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return "", fmt.Errorf("decoding Wikipedia response: %w", err)
	}

	if summary.Type == "disambiguation" {
		return fmt.Sprintf("%q is ambiguous on Wikipedia; try a more specific query.", query), nil
	}
	if summary.Extract == "" {
		return fmt.Sprintf("No Wikipedia article found for: %s", query), nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s\n\n%s\n", summary.Title, summary.Extract)
	if page := summary.Content.Desktop.Page; page != "" {
		fmt.Fprintf(&out, "\nSource: %s\n", page)
	}
	return out.String(), nil
}
