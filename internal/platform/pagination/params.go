package pagination

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultLimit defines the fallback number of items returned when the client omits limit.
	DefaultLimit = 50
	// DefaultMaxLimit caps the supported limit to prevent unbounded queries.
	DefaultMaxLimit = 100
)

var (
	ErrInvalidLimit  = errors.New("pagination: invalid limit")
	ErrInvalidOffset = errors.New("pagination: invalid offset")
)

// Params bundles limit/offset values extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Parse extracts limit and offset query parameters, applying defaults and caps.
func Parse(r *http.Request, opts Options) (Params, error) {
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	params := Params{Limit: defaultLimit}
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Params{}, ErrInvalidLimit
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		params.Limit = limit
	}

	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Params{}, ErrInvalidOffset
		}
		params.Offset = offset
	}

	return params, nil
}

// Clamp normalises arbitrary limit/offset values for non-HTTP callers.
func Clamp(limit, offset, maxLimit int) Params {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}
