package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported pageSize to prevent unbounded responses.
	DefaultMaxPageSize = 200
)

// Params bundles the paging values extracted from a request.
type Params struct {
	PageSize int
	Cursor   Cursor
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params representation.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	pageSize, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return Params{}, err
	}

	cursor, err := DecodeToken(values.Get("pageToken"))
	if err != nil {
		return Params{}, err
	}

	return Params{PageSize: pageSize, Cursor: cursor}, nil
}

// Page slices one page out of the full result set and returns the token for
// the next page, empty when the set is exhausted.
func Page[T any](items []T, params Params) ([]T, string, error) {
	offset := params.Cursor.Offset
	if offset >= len(items) {
		return nil, "", nil
	}
	size := params.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	end := offset + size
	if end >= len(items) {
		return items[offset:], "", nil
	}
	token, err := EncodeToken(Cursor{Offset: end})
	if err != nil {
		return nil, "", err
	}
	return items[offset:end], token, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	fallback := opts.DefaultPageSize
	if fallback <= 0 {
		fallback = DefaultPageSize
	}
	max := opts.MaxPageSize
	if max <= 0 {
		max = DefaultMaxPageSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		if fallback > max {
			return max, nil
		}
		return fallback, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, ErrInvalidPageSize
	}
	if parsed > max {
		return max, nil
	}
	return parsed, nil
}
