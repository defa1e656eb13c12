package feedback

import (
	"errors"
	"net/http"
)

var (
	ErrScoreRequired = errors.New("score is required (1-5)")
	ErrInvalidScore  = errors.New("score must be a finite number")
	ErrRecord        = errors.New("record feedback")
)

// MapHTTPStatus maps feedback errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrScoreRequired), errors.Is(err, ErrInvalidScore):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
