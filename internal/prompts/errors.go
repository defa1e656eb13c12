package prompts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("prompt override not found")
	ErrInvalidStage      = errors.New("stage must be classify, agent, judge, extract, or format")
	ErrEmptyInstructions = errors.New("instructions must not be empty")
)

// MapHTTPStatus maps prompt errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStage), errors.Is(err, ErrEmptyInstructions):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
