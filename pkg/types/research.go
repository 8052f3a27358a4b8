// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research agent:
// configuration, the run transcript, and the validated final record.
package types

// ResearchResponse is the structured record produced by a successful run.
// It is the only value returned to external callers; a response that exists
// has already passed schema validation (non-empty topic and summary,
// non-nil sources and tools_used).
type ResearchResponse struct {
	// Topic is the research topic as restated by the reasoner.
	Topic string `json:"topic" yaml:"topic"`

	// Summary is a comprehensive summary of findings.
	Summary string `json:"summary" yaml:"summary"`

	// Sources lists URL-like strings for the sources consulted, in the
	// order the reasoner reported them.
	Sources []string `json:"sources" yaml:"sources"`

	// ToolsUsed lists the names of tools invoked during the run, in
	// first-use order.
	ToolsUsed []string `json:"tools_used" yaml:"tools_used"`
}

// Role tags a transcript turn with its origin.
type Role string

const (
	// RoleUser is the initial request turn carrying the topic.
	RoleUser Role = "user"

	// RoleAction is a reasoner turn requesting a tool invocation.
	RoleAction Role = "action"

	// RoleObservation is a tool result turn, successful or not.
	RoleObservation Role = "observation"

	// RoleFinal is the reasoner's terminal free-form answer.
	RoleFinal Role = "final"
)

// Turn is one entry in a run's transcript. The transcript is append-only,
// owned exclusively by the loop that created it, and discarded at run end.
type Turn struct {
	// Role identifies the kind of turn.
	Role Role `json:"role" yaml:"role"`

	// Text carries the user request or the reasoner's terminal answer.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// ToolName names the tool for action and observation turns.
	ToolName string `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`

	// ToolArgs holds the arguments the reasoner supplied for an action.
	ToolArgs map[string]any `json:"tool_args,omitempty" yaml:"tool_args,omitempty"`

	// ToolUseID is the provider-assigned identifier linking an observation
	// back to the action that produced it.
	ToolUseID string `json:"tool_use_id,omitempty" yaml:"tool_use_id,omitempty"`

	// Result is the tool's plain-text output, or a descriptive error string
	// when the invocation failed.
	Result string `json:"result,omitempty" yaml:"result,omitempty"`

	// Succeeded reports whether a tool invocation completed without error.
	// Only meaningful for observation turns.
	Succeeded bool `json:"succeeded,omitempty" yaml:"succeeded,omitempty"`
}

// ObservedTools returns the distinct tool names recorded in action turns,
// in first-use order. The schema repair tier uses this to fill a missing
// tools_used field from what actually happened rather than inventing names.
func ObservedTools(transcript []Turn) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range transcript {
		if t.Role != RoleAction || t.ToolName == "" {
			continue
		}
		if !seen[t.ToolName] {
			seen[t.ToolName] = true
			names = append(names, t.ToolName)
		}
	}
	return names
}
