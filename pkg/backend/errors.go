package backend

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels matched with errors.Is.
var (
	// ErrUnauthorized is returned on HTTP 401; the stored token is stale.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned on HTTP 404.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response. Detail carries FastAPI's {"detail": ...}
// message when the body has one.
type APIError struct {
	StatusCode int
	Detail     string
	Path       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
