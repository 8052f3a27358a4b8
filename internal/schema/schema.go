// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema coerces the reasoner's free-form terminal output into a
// validated ResearchResponse. Parsing runs in two tiers: a strict structural
// parse, then a best-effort repair pass for near-miss outputs. A response
// that escapes this package always satisfies its field constraints.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// requiredFields lists the response fields the strict tier demands.
var requiredFields = []string{"topic", "summary", "sources", "tools_used"}

// ValidationError reports why the strict tier rejected an output.
type ValidationError struct {
	MissingFields  []string
	TypeMismatches []string
}

func (e ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, fmt.Sprintf("missing fields: %s", strings.Join(e.MissingFields, ", ")))
	}
	if len(e.TypeMismatches) > 0 {
		parts = append(parts, fmt.Sprintf("type mismatches: %s", strings.Join(e.TypeMismatches, ", ")))
	}
	if len(parts) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// UnrecoverableError reports that both tiers failed. The run ends in failure;
// no partial response is returned.
type UnrecoverableError struct {
	Raw   string
	Cause error
}

func (e UnrecoverableError) Error() string {
	return fmt.Sprintf("output unrecoverable: %v", e.Cause)
}

func (e UnrecoverableError) Unwrap() error { return e.Cause }

// Parse validates raw reasoner output against the ResearchResponse shape.
// observedTools are the tool names actually invoked during the run; the
// repair tier uses them to fill a missing tools_used field. On a double
// failure Parse returns UnrecoverableError.
func Parse(raw string, observedTools []string) (types.ResearchResponse, error) {
	resp, strictErr := parseStrict(raw)
	if strictErr == nil {
		return resp, nil
	}

	resp, repairErr := repair(raw, observedTools)
	if repairErr != nil {
		return types.ResearchResponse{}, UnrecoverableError{
			Raw:   raw,
			Cause: fmt.Errorf("strict: %w; repair: %v", strictErr, repairErr),
		}
	}
	return resp, nil
}

// Serialize renders a response as compact JSON. Parse(Serialize(r)) returns
// a response equal to r for any r produced by this package.
func Serialize(resp types.ResearchResponse) string {
	data, _ := json.Marshal(resp)
	return string(data)
}

// parseStrict attempts a direct structural parse. It rejects non-object
// input, missing or empty required fields, and wrong field types.
func parseStrict(raw string) (types.ResearchResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return types.ResearchResponse{}, ValidationError{MissingFields: requiredFields}
	}

	var verr ValidationError
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			verr.MissingFields = append(verr.MissingFields, name)
		}
	}

	var resp types.ResearchResponse
	if data, ok := fields["topic"]; ok {
		if err := json.Unmarshal(data, &resp.Topic); err != nil {
			verr.TypeMismatches = append(verr.TypeMismatches, "topic: want string")
		}
	}
	if data, ok := fields["summary"]; ok {
		if err := json.Unmarshal(data, &resp.Summary); err != nil {
			verr.TypeMismatches = append(verr.TypeMismatches, "summary: want string")
		}
	}
	if data, ok := fields["sources"]; ok {
		if err := json.Unmarshal(data, &resp.Sources); err != nil {
			verr.TypeMismatches = append(verr.TypeMismatches, "sources: want list of strings")
		}
	}
	if data, ok := fields["tools_used"]; ok {
		if err := json.Unmarshal(data, &resp.ToolsUsed); err != nil {
			verr.TypeMismatches = append(verr.TypeMismatches, "tools_used: want list of strings")
		}
	}

	// Empty topic or summary is as useless as a missing one.
	if len(verr.MissingFields) == 0 && len(verr.TypeMismatches) == 0 {
		if resp.Topic == "" {
			verr.MissingFields = append(verr.MissingFields, "topic")
		}
		if resp.Summary == "" {
			verr.MissingFields = append(verr.MissingFields, "summary")
		}
	}

	if len(verr.MissingFields) > 0 || len(verr.TypeMismatches) > 0 {
		sort.Strings(verr.MissingFields)
		return types.ResearchResponse{}, verr
	}

	normalize(&resp)
	return resp, nil
}

// repair applies best-effort recovery to a near-miss output: strip code
// fences and surrounding prose, coerce a single-string sources value into a
// one-element list, and fill a missing tools_used from the observed tool
// names. Topic and summary cannot be invented; their absence stays fatal.
func repair(raw string, observedTools []string) (types.ResearchResponse, error) {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return types.ResearchResponse{}, fmt.Errorf("no JSON object found in output")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return types.ResearchResponse{}, fmt.Errorf("extracted candidate is not valid JSON: %w", err)
	}

	var resp types.ResearchResponse
	if err := unmarshalString(fields, "topic", &resp.Topic); err != nil {
		return types.ResearchResponse{}, err
	}
	if err := unmarshalString(fields, "summary", &resp.Summary); err != nil {
		return types.ResearchResponse{}, err
	}

	sources, err := coerceStringList(fields, "sources")
	if err != nil {
		return types.ResearchResponse{}, err
	}
	resp.Sources = sources

	if data, ok := fields["tools_used"]; ok {
		if err := json.Unmarshal(data, &resp.ToolsUsed); err != nil {
			var single string
			if err := json.Unmarshal(data, &single); err != nil {
				return types.ResearchResponse{}, fmt.Errorf("tools_used: want list of strings")
			}
			resp.ToolsUsed = []string{single}
		}
	} else {
		// Filled from the transcript's record of invocations, not invented.
		resp.ToolsUsed = append([]string(nil), observedTools...)
	}

	normalize(&resp)
	return resp, nil
}

// unmarshalString requires a present, non-empty string field.
func unmarshalString(fields map[string]json.RawMessage, name string, dst *string) error {
	data, ok := fields[name]
	if !ok {
		return fmt.Errorf("%s: missing", name)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: want string", name)
	}
	if *dst == "" {
		return fmt.Errorf("%s: empty", name)
	}
	return nil
}

// coerceStringList accepts either a list of strings or a bare string, which
// it wraps in a one-element list. A missing field yields an empty list.
func coerceStringList(fields map[string]json.RawMessage, name string) ([]string, error) {
	data, ok := fields[name]
	if !ok {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%s: want list of strings or string", name)
	}
	if single == "" {
		return []string{}, nil
	}
	return []string{single}, nil
}

// extractJSONObject returns the outermost {...} span in text, tolerating
// Markdown code fences and surrounding prose. Returns "" when no span exists.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if fenced := stripCodeFence(text); fenced != "" {
		text = fenced
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// stripCodeFence unwraps a ```json ... ``` (or plain ```) fenced block.
func stripCodeFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// normalize replaces nil slices with empty ones so a response always
// serializes sequence fields as lists.
func normalize(resp *types.ResearchResponse) {
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if resp.ToolsUsed == nil {
		resp.ToolsUsed = []string{}
	}
}
