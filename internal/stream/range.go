// Package stream implements the HTTP partial-content contract for stored
// media objects: Range header parsing, 200/206/416 semantics and the direct
// pipe from object storage to the response.
package stream

import (
	"errors"
	"strconv"
	"strings"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
)

// ErrRangeNotSatisfiable is returned when a parsed range does not fit the
// object. It maps to HTTP 416 and must be raised before any object fetch.
var ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")

// ParseRange parses an HTTP Range header value against a known object size.
//
// Returns (nil, nil) when the header is absent or no numeric start offset can
// be extracted at all; callers then serve the full object. An out-of-bounds
// or inverted range returns ErrRangeNotSatisfiable. An omitted end defaults
// to size-1. Only the first range of a multi-range header is honored.
func ParseRange(header string, size int64) (*repository.ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}

	startStr, endStr, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return nil, nil
	}

	start, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return nil, nil
	}

	end := uint64(size) - 1
	if size == 0 {
		end = 0
	}
	if endStr != "" {
		if parsed, err := strconv.ParseUint(endStr, 10, 64); err == nil {
			end = parsed
		}
	}

	if start >= uint64(size) || end >= uint64(size) || start > end {
		return nil, ErrRangeNotSatisfiable
	}

	return &repository.ByteRange{Start: start, End: end}, nil
}
