// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason wraps calls to the reasoning model. Given a running
// transcript and the tool catalog, a client returns either a tool-invocation
// request or the terminal free-form answer. The model is stateless between
// calls; the transcript carries all history.
package reason

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-agent/internal/tool"
	"github.com/pdiddy/research-agent/pkg/types"
)

// ToolCall is a reasoner request to invoke a named tool.
type ToolCall struct {
	// Name is the tool the reasoner wants to run. It may not match any
	// registered tool; the loop handles that with an error observation.
	Name string

	// Args holds the arguments the reasoner supplied.
	Args map[string]any

	// ID is the provider-assigned identifier for this invocation, echoed
	// back in the matching observation.
	ID string
}

// Decision is the reasoner's choice for one step.
type Decision struct {
	// Tool requests an invocation when non-nil.
	Tool *ToolCall

	// FinalText is the terminal answer when Tool is nil. It is untrusted
	// input for the schema validator, never a typed value.
	FinalText string

	// Thought is any free text the reasoner emitted alongside a tool
	// request. Recorded in the transcript for diagnostics.
	Thought string
}

// Client produces one Decision per reasoning step. Implementations must
// encode the full catalog into every request.
type Client interface {
	Step(ctx context.Context, transcript []types.Turn, catalog []tool.Spec) (Decision, error)
}

// UnavailableError reports that the reasoning backend stayed unreachable
// after exhausting the retry budget. The loop treats it as fatal.
type UnavailableError struct {
	Err error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("reasoning backend unavailable: %v", e.Err)
}

func (e UnavailableError) Unwrap() error { return e.Err }
