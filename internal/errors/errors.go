package errors

import "errors"

// Domain sentinels. Services wrap these; the mapper turns them into stable
// HTTP responses.
var (
	// ErrInvalidInput covers malformed ids and filter sets.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSelfComparison is returned when a viewer asks for a score against
	// themselves.
	ErrSelfComparison = errors.New("cannot score against yourself")

	// ErrNotFound is returned when a referenced profile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData is returned when either party lacks the birth or
	// questionnaire data a sub-scorer needs.
	ErrInsufficientData = errors.New("insufficient data for scoring")

	// ErrCandidatesUnavailable is returned when the candidate query itself
	// fails; fatal to the request, unlike cache failures.
	ErrCandidatesUnavailable = errors.New("candidate query failed")
)
