/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place. Callers branch with errors.Is/As; the API
  layer maps them onto HTTP statuses.

ERROR CATEGORIES:
  1. Completion-gate failures - recoverable, carry the offending rows
  2. Store errors - absent document, version conflict, write failure
  3. Authorization - privileged transitions attempted by non-admins

NOT ERRORS:
  A package descriptor with no parseable volume degrades to "no unit
  conversion" (descriptor.go). A write to a locked row is silently
  ignored, matching how a disabled input behaves (lifecycle.go).
*/
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned by fetch/purge when no document exists for the
	// (location, slug) key. Load treats it as "new empty ledger".
	ErrNotFound = errors.New("ledger document not found")

	// ErrVersionConflict is returned when the version token presented at
	// write time no longer matches the stored document. The caller must
	// reload and re-apply.
	ErrVersionConflict = errors.New("ledger version conflict")

	// ErrForbidden is returned when a privileged operation (reversion,
	// purge) is attempted by a non-admin actor.
	ErrForbidden = errors.New("operation requires admin role")

	// ErrInvalidTransition is returned for status changes outside the
	// draft/complete lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnsignedRows is the sentinel under SignatureError.
	ErrUnsignedRows = errors.New("rows missing preparer signature")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SignatureError reports a completion-gate failure. Rows holds the 1-based
// numbers of every qualifying row without a preparer signature; the whole
// save was rejected, nothing was applied.
type SignatureError struct {
	Rows []int
}

func (e *SignatureError) Error() string {
	nums := make([]string, len(e.Rows))
	for i, n := range e.Rows {
		nums[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("rows missing preparer signature: %s", strings.Join(nums, ", "))
}

func (e *SignatureError) Unwrap() error { return ErrUnsignedRows }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's to fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsignedRows) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsRetryable reports whether reloading and retrying might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
