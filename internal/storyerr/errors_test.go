package storyerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_ErrorString(t *testing.T) {
	err := New(KindInvariantViolation, "acts out of range")
	want := "invariant_violation: acts out of range"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_ErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindSourceUnavailable, "querying lore store", cause)

	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the wrapped cause")
	}
	want := "source_unavailable: querying lore store: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs_MatchesKind(t *testing.T) {
	err := New(KindTierForbidden, "ceiling exceeded")
	if !Is(err, KindTierForbidden) {
		t.Error("Is() should match the error's own kind")
	}
	if Is(err, KindCanonConflict) {
		t.Error("Is() should not match a different kind")
	}
}

func TestIs_UnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(KindSchemaIncompatible, "version mismatch")
	wrapped := fmt.Errorf("loading snapshot: %w", inner)

	if !Is(wrapped, KindSchemaIncompatible) {
		t.Error("Is() should unwrap through fmt.Errorf-wrapped errors")
	}
}

func TestIs_FalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindInvariantViolation) {
		t.Error("Is() should return false for a non-*Error")
	}
}
