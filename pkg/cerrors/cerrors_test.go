package cerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		wantHas string
	}{
		{
			name:    "no cause",
			err:     New(CategoryDimension, SeverityHigh, "cycle detected"),
			wantHas: "[Dimension/High] cycle detected",
		},
		{
			name:    "wrapped cause",
			err:     Wrap(errors.New("boom"), CategoryRunner, SeverityMedium, "spawn failed"),
			wantHas: "[Runner/Medium] spawn failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.wantHas) {
				t.Fatalf("expected %q to contain %q", got, tt.wantHas)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryConfig, SeverityLow, "noop") != nil {
		t.Fatal("expected Wrap(nil, ...) to return nil")
	}
}

func TestIsCritical(t *testing.T) {
	critical := New(CategoryCritical, SeverityCritical, "fatal")
	if !IsCritical(critical) {
		t.Fatal("expected IsCritical to be true")
	}

	soft := New(CategoryConfig, SeverityLow, "warn")
	if IsCritical(soft) {
		t.Fatal("expected IsCritical to be false")
	}

	if IsCritical(errors.New("plain error")) {
		t.Fatal("expected IsCritical(plain error) to be false")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(cause, CategoryExternal, SeverityLow, "context")

	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to reach the cause through Unwrap")
	}
	if wrapped.Cause() == nil {
		t.Fatal("expected a non-nil cause")
	}
}
