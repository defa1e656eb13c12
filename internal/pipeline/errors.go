package pipeline

import (
	"errors"
	"net/http"
)

var (
	ErrEmptyQuery     = errors.New("message is required")
	ErrAcquireAgents  = errors.New("acquire agents")
	ErrGenerateFailed = errors.New("generate answer")
)

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrEmptyQuery) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
