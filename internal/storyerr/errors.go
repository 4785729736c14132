// Package storyerr defines the error taxonomy shared by every component of
// the broadcast engine: extraction, validation, scheduling, and weaving all
// fail through the same typed error so callers can branch on Kind rather
// than matching message strings.
package storyerr

import (
	"errors"
	"fmt"
)

// Kind identifies which failure mode an Error represents.
type Kind string

const (
	// KindSourceUnavailable means the lore vector store could not be
	// reached or queried.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindCanonConflict means a story contradicts a faction relationship
	// in the canon tables.
	KindCanonConflict Kind = "canon_conflict"
	// KindFactionAnachronism means a story references a faction outside
	// its lifespan.
	KindFactionAnachronism Kind = "faction_anachronism"
	// KindEventDateMismatch means a story's year range disagrees with a
	// referenced canon event's recorded year.
	KindEventDateMismatch Kind = "event_date_mismatch"
	// KindTemporalBoundary means a story's year range falls outside its
	// era's bounds.
	KindTemporalBoundary Kind = "temporal_boundary"
	// KindTierForbidden means a DJ's knowledge tier ceiling is below the
	// story's required tier.
	KindTierForbidden Kind = "tier_forbidden"
	// KindSchemaIncompatible means a persisted snapshot's schema version
	// does not match the running engine's expectations.
	KindSchemaIncompatible Kind = "schema_incompatible"
	// KindInvariantViolation means a data-model invariant was violated
	// (act ordering, year bounds, empty required field).
	KindInvariantViolation Kind = "invariant_violation"
	// KindRNGContract means a caller supplied or observed a non-
	// deterministic RNG where determinism was required.
	KindRNGContract Kind = "rng_contract"
)

// Error is the taxonomy error used throughout the engine.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
