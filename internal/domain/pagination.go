package domain

import (
	"encoding/base64"
	"strconv"
)

// DefaultPageSize is the page size used when a request does not set one.
const DefaultPageSize = 50

// MaxPageSize caps the page size of history listings.
const MaxPageSize = 500

// PageRequest holds pagination parameters for history listings.
type PageRequest struct {
	MaxResults int
	PageToken  string // base64-encoded offset
}

// Offset decodes the page token into a row offset; 0 for an empty or
// malformed token.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.StdEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultPageSize
	case p.MaxResults > MaxPageSize:
		return MaxPageSize
	default:
		return p.MaxResults
	}
}

// NextPageToken returns the token for the page after the current one, or ""
// when fewer than limit rows were returned.
func (p PageRequest) NextPageToken(returned int) string {
	if returned < p.Limit() {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(p.Offset() + returned)))
}
