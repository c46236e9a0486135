// Package chunk splits large encoded payloads into pieces that fit a
// size-limited request channel, and joins them back.
//
// The scheme is positional: chunk i holds bytes [i*n, (i+1)*n) of the
// payload, so the receiver reconstructs it by plain concatenation in order.
package chunk

import (
	"strings"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// DefaultSize is the largest element the upload channel accepts.
const DefaultSize = 30000

// Split cuts payload into ceil(len(payload)/size) chunks. Every chunk is
// exactly size bytes long except the last, which holds the remainder.
// An empty payload yields no chunks.
//
// Payloads are expected to be ASCII (base64); slicing is by byte.
func Split(payload string, size int) ([]string, error) {
	if size <= 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "chunk size must be positive, got %d", size)
	}

	out := make([]string, 0, (len(payload)+size-1)/size)
	for i := 0; i < len(payload); i += size {
		end := min(i+size, len(payload))
		out = append(out, payload[i:end])
	}
	return out, nil
}

// Join concatenates chunks left to right. It is the exact inverse of Split.
func Join(chunks []string) string {
	return strings.Join(chunks, "")
}

// StripDataURIPrefix returns the payload part of a data URI, that is
// everything after the first comma. Strings without a comma are returned
// unchanged.
func StripDataURIPrefix(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}
