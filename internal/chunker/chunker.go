// Package chunker splits raw page text into overlapping fixed-size windows
// suitable for embedding. Chunk boundaries are purely positional: a chunk may
// split mid-sentence or mid-word. The overlap between adjacent chunks is what
// preserves local context across the cut, not any semantic boundary detection.
package chunker

import (
	"errors"
	"fmt"
)

// Default window parameters, matching the dimensions the knowledge base was
// originally built with. Changing them requires a full re-ingestion.
const (
	// DefaultSize is the maximum number of bytes per chunk.
	DefaultSize = 1500
	// DefaultOverlap is the number of bytes shared between adjacent chunks.
	DefaultOverlap = 200
)

// ErrInvalidConfig is returned when the chunking parameters violate the
// size > overlap >= 0 invariant. It is fatal at startup or ingestion start
// and is never silently corrected.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Split divides text into chunks of at most size bytes, where chunk n and
// chunk n+1 share an overlap-byte region. The final chunk may be shorter.
// Non-empty input always produces at least one chunk; empty input produces
// none. Returns ErrInvalidConfig unless size > overlap >= 0.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfig, overlap, size)
	}

	if len(text) == 0 {
		return nil, nil
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}
