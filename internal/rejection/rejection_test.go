package rejection

import (
	"errors"
	"fmt"
	"testing"
)

func TestRejection_Is(t *testing.T) {
	err := New(ReasonNotFound, "questionary 42")

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected match by reason")
	}
	if errors.Is(err, ErrInternal) {
		t.Error("different reasons must not match")
	}

	wrapped := fmt.Errorf("resolver: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("expected match through wrapping")
	}
}

func TestRejection_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ReasonInternalError, "update answer", cause)

	if !errors.Is(err, cause) {
		t.Error("cause should be reachable")
	}
	if err.Error() != "INTERNAL_ERROR: update answer" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestRejection_ErrorWithoutMessage(t *testing.T) {
	if ErrInvalidState.Error() != "INVALID_STATE" {
		t.Errorf("unexpected message: %s", ErrInvalidState.Error())
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Reason
	}{
		{"nil", nil, ""},
		{"rejection", New(ReasonInvalidDependency, "cycle"), ReasonInvalidDependency},
		{"wrapped", fmt.Errorf("x: %w", New(ReasonNotFound, "")), ReasonNotFound},
		{"plain error", errors.New("boom"), ReasonInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestIsRejection(t *testing.T) {
	if !IsRejection(ErrNotAuthorized) {
		t.Error("sentinel is a rejection")
	}
	if IsRejection(errors.New("plain")) {
		t.Error("plain error is not a rejection")
	}
}
