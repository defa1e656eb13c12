package strategies

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound = errors.New("no strategy recorded for domain")
	ErrSave     = errors.New("save strategies")
	ErrLoad     = errors.New("load strategies")
)

// MapHTTPStatus maps strategy errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
