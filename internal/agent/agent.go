// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent drives the research loop. Each run alternates reasoning
// steps with tool invocations, recording both in an append-only transcript,
// until the reasoner produces a terminal answer or the step budget runs out.
// The terminal answer is validated into a ResearchResponse and persisted as
// a report plus a transcript snapshot.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/research-agent/internal/notes"
	"github.com/pdiddy/research-agent/internal/reason"
	"github.com/pdiddy/research-agent/internal/report"
	"github.com/pdiddy/research-agent/internal/schema"
	"github.com/pdiddy/research-agent/internal/tool"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Abort reasons carried by AbortError.
const (
	AbortStepLimit            = "step_limit_exceeded"
	AbortReasoningUnavailable = "reasoning_unavailable"
	AbortOutputUnrecoverable  = "output_unrecoverable"
)

const defaultMaxSteps = 10

// AbortError reports a run that ended without a validated response. The
// transcript is preserved for diagnostics; no partial response is returned.
type AbortError struct {
	Reason     string
	Steps      int
	Transcript []types.Turn
	Err        error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("research aborted after %d steps (%s): %v", e.Steps, e.Reason, e.Err)
	}
	return fmt.Sprintf("research aborted after %d steps (%s)", e.Steps, e.Reason)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Result is the outcome of a successful run.
type Result struct {
	Response   types.ResearchResponse
	Transcript []types.Turn
	Steps      int

	// ReportPath is where the rendered report landed, empty if persistence
	// was skipped or failed.
	ReportPath string

	// Warnings records non-fatal problems, currently only persistence
	// failures. A run with warnings is still a success.
	Warnings []string
}

// Agent runs research sessions. One Agent may serve many sequential runs;
// each run owns its own transcript.
type Agent struct {
	// Reasoner decides each step.
	Reasoner reason.Client

	// Registry holds the tools presented to the reasoner.
	Registry *tool.Registry

	// Store receives the report and transcript snapshot. Nil disables
	// persistence.
	Store *notes.Store

	// MaxSteps bounds reasoning steps per run. Zero means the default (10).
	MaxSteps int

	// ToolTimeout bounds a single tool invocation. Zero means no bound
	// beyond the run context.
	ToolTimeout time.Duration

	// Progress receives human-readable step lines. Nil discards them.
	Progress io.Writer
}

// Research runs the loop for topic until the reasoner finishes, the step
// budget is exhausted, or the context is cancelled. A non-nil error is
// always an *AbortError or a context error; there is no partial success.
func (a *Agent) Research(ctx context.Context, topic string) (*Result, error) {
	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	catalog := a.Registry.Catalog()
	transcript := []types.Turn{{
		Role: types.RoleUser,
		Text: fmt.Sprintf("Research the following topic and provide a comprehensive summary: %s", topic),
	}}

	for step := 1; step <= maxSteps; step++ {
		// Cancellation is checked at reasoning transitions; a tool call in
		// flight is allowed to finish.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decision, err := a.Reasoner.Step(ctx, transcript, catalog)
		if err != nil {
			var unavailable reason.UnavailableError
			if errors.As(err, &unavailable) {
				return nil, &AbortError{
					Reason:     AbortReasoningUnavailable,
					Steps:      step,
					Transcript: transcript,
					Err:        err,
				}
			}
			return nil, &AbortError{
				Reason:     AbortReasoningUnavailable,
				Steps:      step,
				Transcript: transcript,
				Err:        fmt.Errorf("reasoning step: %w", err),
			}
		}

		if decision.Tool == nil {
			transcript = append(transcript, types.Turn{
				Role: types.RoleFinal,
				Text: decision.FinalText,
			})
			return a.finish(topic, decision.FinalText, transcript, step)
		}

		call := decision.Tool
		a.progressf("step %d: %s\n", step, call.Name)
		transcript = append(transcript, types.Turn{
			Role:      types.RoleAction,
			Text:      decision.Thought,
			ToolName:  call.Name,
			ToolArgs:  call.Args,
			ToolUseID: call.ID,
		})

		result, ok := a.invoke(ctx, call)
		transcript = append(transcript, types.Turn{
			Role:      types.RoleObservation,
			ToolName:  call.Name,
			ToolUseID: call.ID,
			Result:    result,
			Succeeded: ok,
		})
	}

	return nil, &AbortError{
		Reason:     AbortStepLimit,
		Steps:      maxSteps,
		Transcript: transcript,
	}
}

// finish validates the terminal answer and persists artifacts. Validation
// failure aborts the run; persistence failure only produces warnings.
func (a *Agent) finish(topic, finalText string, transcript []types.Turn, steps int) (*Result, error) {
	resp, err := schema.Parse(finalText, types.ObservedTools(transcript))
	if err != nil {
		return nil, &AbortError{
			Reason:     AbortOutputUnrecoverable,
			Steps:      steps,
			Transcript: transcript,
			Err:        err,
		}
	}

	res := &Result{
		Response:   resp,
		Transcript: transcript,
		Steps:      steps,
	}

	if a.Store != nil {
		path, err := report.Write(a.Store.Dir(), resp)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("saving report: %v", err))
		} else {
			res.ReportPath = path
		}

		if _, err := report.WriteTranscript(a.Store.Dir(), topic, transcript); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("saving transcript: %v", err))
		}
	}

	for _, w := range res.Warnings {
		a.progressf("warning: %s\n", w)
	}

	return res, nil
}

// invoke runs one tool call and reports the observation text plus whether
// the call succeeded. A reasoner may name a tool that does not exist or
// supply bad arguments; both become failed observations it can react to,
// never run failures.
func (a *Agent) invoke(ctx context.Context, call *reason.ToolCall) (result string, ok bool) {
	spec, err := a.Registry.Resolve(call.Name)
	if err != nil {
		return fmt.Sprintf("Error: tool %q is not available", call.Name), false
	}

	if a.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.ToolTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("Error executing tool %q: panic: %v", call.Name, r)
			ok = false
		}
	}()

	out, err := spec.Invoke(ctx, call.Args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %q: %v", call.Name, err), false
	}
	return out, true
}

func (a *Agent) progressf(format string, args ...any) {
	if a.Progress == nil {
		return
	}
	fmt.Fprintf(a.Progress, format, args...)
}
