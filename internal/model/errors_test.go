package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: NewValidationError("bad"), want: "validation"},
		{name: "wrapped not found", err: fmt.Errorf("complaint x: %w", ErrNotFound), want: "not_found"},
		{name: "conflict", err: fmt.Errorf("update: %w", ErrConflict), want: "conflict"},
		{name: "dependency", err: Dependency("insert complaint", errors.New("disk full")), want: "dependency"},
		{name: "plain", err: errors.New("boom"), want: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDependencyKeepsKnownKinds(t *testing.T) {
	err := Dependency("get complaint", fmt.Errorf("row: %w", ErrNotFound))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found to survive wrapping, got %v", err)
	}
	if errors.Is(err, ErrDependency) {
		t.Fatal("not found must not be reported as a dependency failure")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Message: "invalid complaint", Fields: map[string]string{
		"name":  "is required",
		"email": "must be a valid email address",
	}}
	want := "invalid complaint (email: must be a valid email address; name: is required)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPriorityBump(t *testing.T) {
	tests := []struct {
		in, want Priority
	}{
		{PriorityLow, PriorityMedium},
		{PriorityMedium, PriorityHigh},
		{PriorityHigh, PriorityCritical},
		{PriorityCritical, PriorityCritical},
	}
	for _, tt := range tests {
		if got := tt.in.Bump(); got != tt.want {
			t.Errorf("%s.Bump() = %s, want %s", tt.in, got, tt.want)
		}
	}
}
