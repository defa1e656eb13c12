package registry

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound = errors.New("agent not registered")
	ErrSave     = errors.New("save registry")
	ErrLoad     = errors.New("load registry")
)

// MapHTTPStatus maps registry errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
