// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/research-agent/internal/tool"
	"github.com/pdiddy/research-agent/pkg/types"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	backoffBase = 1 * time.Millisecond
}

func testCatalog() []tool.Spec {
	return []tool.Spec{
		{
			Name:        "search_tool",
			Description: "Search the web for current information.",
			InputSchema: map[string]string{"query": "string"},
			Invoke: func(_ context.Context, _ map[string]any) (string, error) {
				return "", nil
			},
		},
	}
}

func seedTranscript() []types.Turn {
	return []types.Turn{
		{Role: types.RoleUser, Text: "Research the history of the transistor."},
	}
}

// withServer swaps claudeAPIURL for a test server and returns a client.
func withServer(t *testing.T, handler http.HandlerFunc) *ClaudeClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = old })

	return &ClaudeClient{APIKey: "test-key", Model: "test-model", Client: ts.Client()}
}

func TestStepDecodesToolUse(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Name != "search_tool" {
			t.Errorf("catalog not encoded: %+v", req.Tools)
		}
		if req.Tools[0].InputSchema.Type != "object" {
			t.Errorf("input_schema.type = %q, want object", req.Tools[0].InputSchema.Type)
		}
		if req.System == "" {
			t.Error("system prompt missing")
		}

		fmt.Fprint(w, `{"stop_reason":"tool_use","content":[
			{"type":"text","text":"I should search first."},
			{"type":"tool_use","id":"toolu_01","name":"search_tool","input":{"query":"transistor history"}}
		]}`)
	})

	dec, err := c.Step(context.Background(), seedTranscript(), testCatalog())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if dec.Tool == nil {
		t.Fatal("Decision.Tool = nil, want tool call")
	}
	if dec.Tool.Name != "search_tool" {
		t.Errorf("Tool.Name = %q", dec.Tool.Name)
	}
	if dec.Tool.ID != "toolu_01" {
		t.Errorf("Tool.ID = %q", dec.Tool.ID)
	}
	if got := dec.Tool.Args["query"]; got != "transistor history" {
		t.Errorf("Args[query] = %v", got)
	}
	if dec.Thought != "I should search first." {
		t.Errorf("Thought = %q", dec.Thought)
	}
}

func TestStepDecodesFinish(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"stop_reason":"end_turn","content":[
			{"type":"text","text":"{\"topic\":\"t\",\"summary\":\"s\",\"sources\":[],\"tools_used\":[]}"}
		]}`)
	})

	dec, err := c.Step(context.Background(), seedTranscript(), testCatalog())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if dec.Tool != nil {
		t.Fatalf("Decision.Tool = %+v, want nil", dec.Tool)
	}
	if dec.FinalText == "" {
		t.Error("FinalText is empty")
	}
}

func TestStepEncodesObservationTurns(t *testing.T) {
	transcript := []types.Turn{
		{Role: types.RoleUser, Text: "topic"},
		{Role: types.RoleAction, ToolName: "search_tool", ToolUseID: "toolu_01",
			ToolArgs: map[string]any{"query": "q"}},
		{Role: types.RoleObservation, ToolName: "search_tool", ToolUseID: "toolu_01",
			Result: "tool blew up", Succeeded: false},
	}

	var captured claudeRequest
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"done"}]}`)
	})

	if _, err := c.Step(context.Background(), transcript, testCatalog()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(captured.Messages))
	}
	if captured.Messages[1].Role != "assistant" {
		t.Errorf("action role = %q, want assistant", captured.Messages[1].Role)
	}
	obs := captured.Messages[2]
	if obs.Role != "user" {
		t.Errorf("observation role = %q, want user", obs.Role)
	}
	if len(obs.Content) != 1 || obs.Content[0].Type != "tool_result" {
		t.Fatalf("observation content = %+v, want one tool_result", obs.Content)
	}
	if obs.Content[0].ToolUseID != "toolu_01" {
		t.Errorf("tool_use_id = %q", obs.Content[0].ToolUseID)
	}
	if !obs.Content[0].IsError {
		t.Error("failed observation should set is_error")
	}
}

func TestStepRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"recovered"}]}`)
	})
	c.MaxRetries = 3

	dec, err := c.Step(context.Background(), seedTranscript(), testCatalog())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if dec.FinalText != "recovered" {
		t.Errorf("FinalText = %q", dec.FinalText)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestStepExhaustsRetries(t *testing.T) {
	var calls int32
	c := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c.MaxRetries = 2

	_, err := c.Step(context.Background(), seedTranscript(), testCatalog())
	var unavailable UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Step = %v, want UnavailableError", err)
	}
	// 1 initial + 2 retries = 3 total calls.
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestStepNonRetryableErrorIsImmediatelyFatal(t *testing.T) {
	var calls int32
	c := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})
	c.MaxRetries = 5

	_, err := c.Step(context.Background(), seedTranscript(), testCatalog())
	var unavailable UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Step = %v, want UnavailableError", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", calls)
	}
}
