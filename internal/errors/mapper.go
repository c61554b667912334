package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// HTTPError is the wire form of a failure: an HTTP status, a stable machine
// code, and a human-readable message. Internal details never leak into the
// message.
type HTTPError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Map converts service/repo/infra errors into HTTPErrors. Keeps handlers
// clean by centralizing the mapping in one place.
func Map(err error) *HTTPError {
	if err == nil {
		return nil
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return &HTTPError{Status: http.StatusBadRequest, Code: "invalid_input", Message: err.Error()}

	case errors.Is(err, ErrSelfComparison):
		return &HTTPError{Status: http.StatusBadRequest, Code: "self_comparison", Message: "cannot request compatibility with yourself"}

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return &HTTPError{Status: http.StatusNotFound, Code: "not_found", Message: "profile not found"}

	case errors.Is(err, ErrInsufficientData):
		return &HTTPError{Status: http.StatusUnprocessableEntity, Code: "insufficient_data", Message: "birth or questionnaire data missing for one of the profiles"}

	case errors.Is(err, ErrCandidatesUnavailable):
		return &HTTPError{Status: http.StatusInternalServerError, Code: "candidates_unavailable", Message: "could not load candidates"}

	case errors.Is(err, context.DeadlineExceeded):
		return &HTTPError{Status: http.StatusGatewayTimeout, Code: "timeout", Message: "request timed out"}

	case errors.Is(err, context.Canceled):
		return &HTTPError{Status: 499, Code: "canceled", Message: "request was canceled"}

	default:
		return &HTTPError{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
	}
}

// InvalidArgument wraps a validation message in ErrInvalidInput.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
