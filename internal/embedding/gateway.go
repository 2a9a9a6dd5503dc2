// Package embedding turns text into fixed-dimension vectors via an external
// embedding service. Callers treat an empty vector as "no embedding
// produced" and decide locally whether that skips a chunk or empties a
// retrieval context.
package embedding

import "context"

// Gateway is the embedding contract.
type Gateway interface {
	// Embed returns the vector for text. A nil or empty slice with a nil
	// error means the service produced nothing usable for this input.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the width of vectors this gateway produces.
	Dimension() int
}
