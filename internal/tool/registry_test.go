// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func echoSpec(name string) Spec {
	return Spec{
		Name:        name,
		Description: "echoes its input",
		InputSchema: map[string]string{"text": "string"},
		Invoke: func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("%v", args["text"]), nil
		},
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	spec, err := r.Resolve("echo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Name != "echo" {
		t.Errorf("Name = %q, want %q", spec.Name, "echo")
	}

	out, err := spec.Invoke(context.Background(), map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "hi" {
		t.Errorf("Invoke = %q, want %q", out, "hi")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoSpec("echo")); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := r.Register(echoSpec("echo"))
	var dup DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("second Register = %v, want DuplicateError", err)
	}
	if dup.Name != "echo" {
		t.Errorf("DuplicateError.Name = %q, want %q", dup.Name, "echo")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegisterRejectsInvalidSpecs(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Spec{Name: "", Invoke: echoSpec("x").Invoke}); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := r.Register(Spec{Name: "no-invoke"}); err == nil {
		t.Error("nil Invoke should be rejected")
	}
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("missing")
	var unknown UnknownError
	if !errors.As(err, &unknown) {
		t.Fatalf("Resolve = %v, want UnknownError", err)
	}
	if unknown.Name != "missing" {
		t.Errorf("UnknownError.Name = %q, want %q", unknown.Name, "missing")
	}
}

func TestCatalogPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := r.Register(echoSpec(n)); err != nil {
			t.Fatalf("Register %s: %v", n, err)
		}
	}

	for i := 0; i < 3; i++ {
		catalog := r.Catalog()
		if len(catalog) != len(names) {
			t.Fatalf("len(Catalog) = %d, want %d", len(catalog), len(names))
		}
		for j, spec := range catalog {
			if spec.Name != names[j] {
				t.Errorf("Catalog[%d].Name = %q, want %q", j, spec.Name, names[j])
			}
		}
	}
}
