// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const validJSON = `{
	"topic": "AI and machine learning in FinTech startups",
	"summary": "FinTech startups increasingly rely on ML for fraud detection.",
	"sources": ["https://example.com/a", "https://example.com/b"],
	"tools_used": ["search_tool", "note_tool"]
}`

func TestParseStrictValid(t *testing.T) {
	resp, err := Parse(validJSON, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Topic != "AI and machine learning in FinTech startups" {
		t.Errorf("Topic = %q", resp.Topic)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want 2", len(resp.Sources))
	}
	if !reflect.DeepEqual(resp.ToolsUsed, []string{"search_tool", "note_tool"}) {
		t.Errorf("ToolsUsed = %v", resp.ToolsUsed)
	}
}

func TestParseIdempotent(t *testing.T) {
	first, err := Parse(validJSON, nil)
	if err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	second, err := Parse(Serialize(first), nil)
	if err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round-trip changed response:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestParseStrictReportsMissingFields(t *testing.T) {
	_, err := parseStrict(`{"topic": "t", "summary": "s"}`)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("parseStrict = %v, want ValidationError", err)
	}
	want := []string{"sources", "tools_used"}
	if !reflect.DeepEqual(verr.MissingFields, want) {
		t.Errorf("MissingFields = %v, want %v", verr.MissingFields, want)
	}
}

func TestParseStrictReportsTypeMismatches(t *testing.T) {
	_, err := parseStrict(`{"topic": 42, "summary": "s", "sources": [], "tools_used": []}`)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("parseStrict = %v, want ValidationError", err)
	}
	if len(verr.TypeMismatches) != 1 || !strings.Contains(verr.TypeMismatches[0], "topic") {
		t.Errorf("TypeMismatches = %v", verr.TypeMismatches)
	}
}

func TestParseStrictRejectsEmptyTopic(t *testing.T) {
	_, err := parseStrict(`{"topic": "", "summary": "s", "sources": [], "tools_used": []}`)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("parseStrict = %v, want ValidationError", err)
	}
}

func TestParseStrictRejectsNonObject(t *testing.T) {
	for _, raw := range []string{"just prose", `["a"]`, `"string"`, ""} {
		if _, err := parseStrict(raw); err == nil {
			t.Errorf("parseStrict(%q) should fail", raw)
		}
	}
}

func TestRepairFillsToolsUsedFromTranscript(t *testing.T) {
	raw := `{
		"topic": "FinTech",
		"summary": "A summary.",
		"sources": ["https://example.com"]
	}`
	observed := []string{"search_tool", "note_tool"}

	resp, err := Parse(raw, observed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(resp.ToolsUsed, observed) {
		t.Errorf("ToolsUsed = %v, want %v", resp.ToolsUsed, observed)
	}
}

func TestRepairExtractsObjectFromProse(t *testing.T) {
	raw := "Here is my final answer:\n\n" + validJSON + "\n\nLet me know if you need more."
	resp, err := Parse(raw, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Topic == "" {
		t.Error("Topic is empty after repair")
	}
}

func TestRepairStripsCodeFence(t *testing.T) {
	raw := "```json\n" + validJSON + "\n```"
	resp, err := Parse(raw, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want 2", len(resp.Sources))
	}
}

func TestRepairCoercesSingleStringSources(t *testing.T) {
	raw := `{"topic": "t", "summary": "s", "sources": "https://example.com", "tools_used": []}`
	resp, err := Parse(raw, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(resp.Sources, []string{"https://example.com"}) {
		t.Errorf("Sources = %v", resp.Sources)
	}
}

func TestParseUnrecoverable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no JSON at all", "I could not complete the research."},
		{"missing summary", `{"topic": "t", "sources": []}`},
		{"empty topic", `{"topic": "", "summary": "s", "sources": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, []string{"search_tool"})
			var unrec UnrecoverableError
			if !errors.As(err, &unrec) {
				t.Fatalf("Parse = %v, want UnrecoverableError", err)
			}
			if unrec.Raw != tt.raw {
				t.Errorf("Raw not preserved")
			}
		})
	}
}

func TestNormalizeProducesEmptySlices(t *testing.T) {
	resp, err := Parse(`{"topic": "t", "summary": "s", "sources": [], "tools_used": []}`, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Sources == nil || resp.ToolsUsed == nil {
		t.Error("sequence fields should never be nil")
	}
	if !strings.Contains(Serialize(resp), `"sources":[]`) {
		t.Errorf("Serialize = %s, want sources as []", Serialize(resp))
	}
}
