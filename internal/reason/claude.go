// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/internal/tool"
	"github.com/pdiddy/research-agent/pkg/types"
)

// systemPrompt instructs the model to research with tools and answer with
// JSON matching the ResearchResponse shape.
const systemPrompt = `You are a research assistant.

Your task:
1. Use search tools to gather information about the topic
2. Save raw research notes using the note tool
3. After gathering all information, provide your final answer

IMPORTANT: Your final response MUST be valid JSON with exactly these fields:
{"topic": string, "summary": string, "sources": [string, ...], "tools_used": [string, ...]}

Track which tools you use and which sources you find. Do not include any text
outside the JSON object in your final answer.`

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// backoffBase controls the base duration for exponential backoff on
// transient API failures. Tests override this to avoid real sleeps.
var backoffBase = time.Second

const (
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

// ClaudeClient calls the Claude Messages API with the tool catalog attached,
// so the model can either request a tool invocation or answer directly.
type ClaudeClient struct {
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Tools     []claudeTool    `json:"tools,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeTool describes one catalog entry in the wire format the API expects.
type claudeTool struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema claudeSchema `json:"input_schema"`
}

// claudeSchema is the JSON-schema object wrapper around a tool's parameters.
type claudeSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]claudeProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type claudeProperty struct {
	Type string `json:"type"`
}

// claudeMessage is a single conversational turn.
type claudeMessage struct {
	Role    string         `json:"role"`
	Content []claudeContent `json:"content"`
}

// claudeContent is a union of text, tool_use, and tool_result blocks.
type claudeContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}

// Step sends the transcript and catalog to the API and maps the response to
// a Decision. Transient failures are retried with exponential backoff; a
// persistent failure surfaces as UnavailableError.
func (c *ClaudeClient) Step(ctx context.Context, transcript []types.Turn, catalog []tool.Spec) (Decision, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Tools:     encodeCatalog(catalog),
		Messages:  encodeTranscript(transcript),
	}

	resp, err := c.callWithRetry(ctx, reqBody)
	if err != nil {
		return Decision{}, err
	}

	return decodeDecision(resp), nil
}

// encodeCatalog converts registered specs into the API tools field. Every
// declared parameter is required; the loop tolerates missing arguments by
// letting the tool report them descriptively.
func encodeCatalog(catalog []tool.Spec) []claudeTool {
	tools := make([]claudeTool, 0, len(catalog))
	for _, spec := range catalog {
		props := make(map[string]claudeProperty, len(spec.InputSchema))
		var required []string
		for name, typ := range spec.InputSchema {
			props[name] = claudeProperty{Type: typ}
			required = append(required, name)
		}
		tools = append(tools, claudeTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: claudeSchema{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		})
	}
	return tools
}

// encodeTranscript maps transcript turns onto Messages API turns: the user
// request becomes a user text message, actions become assistant tool_use
// blocks, and observations become user tool_result blocks. Failed
// observations carry is_error so the model can self-correct.
func encodeTranscript(transcript []types.Turn) []claudeMessage {
	var messages []claudeMessage
	for _, t := range transcript {
		switch t.Role {
		case types.RoleUser:
			messages = append(messages, claudeMessage{
				Role:    "user",
				Content: []claudeContent{{Type: "text", Text: t.Text}},
			})
		case types.RoleAction:
			blocks := make([]claudeContent, 0, 2)
			if t.Text != "" {
				blocks = append(blocks, claudeContent{Type: "text", Text: t.Text})
			}
			blocks = append(blocks, claudeContent{
				Type:  "tool_use",
				ID:    t.ToolUseID,
				Name:  t.ToolName,
				Input: t.ToolArgs,
			})
			messages = append(messages, claudeMessage{Role: "assistant", Content: blocks})
		case types.RoleObservation:
			messages = append(messages, claudeMessage{
				Role: "user",
				Content: []claudeContent{{
					Type:      "tool_result",
					ToolUseID: t.ToolUseID,
					Content:   t.Result,
					IsError:   !t.Succeeded,
				}},
			})
		}
	}
	return messages
}

// decodeDecision maps a response to a Decision. The first tool_use block
// wins; a response without one is a Finish carrying the concatenated text,
// even when that text is malformed. The validator decides what to do with it.
func decodeDecision(resp claudeResponse) Decision {
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			return Decision{
				Tool: &ToolCall{
					Name: block.Name,
					Args: block.Input,
					ID:   block.ID,
				},
				Thought: strings.TrimSpace(text.String()),
			}
		}
	}
	return Decision{FinalText: strings.TrimSpace(text.String())}
}

// callWithRetry posts the request, retrying transient failures (network
// errors, HTTP 429 and 5xx) with exponential backoff.
func (c *ClaudeClient) callWithRetry(ctx context.Context, reqBody claudeRequest) (claudeResponse, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return claudeResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, retryable, err := c.call(ctx, reqBody)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return claudeResponse{}, UnavailableError{Err: err}
		}
	}
	return claudeResponse{}, UnavailableError{Err: fmt.Errorf("after %d retries: %w", maxRetries, lastErr)}
}

// call performs a single Messages API request. The second return value
// reports whether a failure is worth retrying.
func (c *ClaudeClient) call(ctx context.Context, reqBody claudeRequest) (claudeResponse, bool, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return claudeResponse{}, false, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return claudeResponse{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return claudeResponse{}, true, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return claudeResponse{}, retryable, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return claudeResponse{}, false, fmt.Errorf("decoding Claude response: %w", err)
	}

	if len(cResp.Content) == 0 {
		return claudeResponse{}, false, fmt.Errorf("Claude API returned empty content")
	}

	return cResp, false, nil
}
