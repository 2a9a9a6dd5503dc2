// Package chunkstore persists embedded text chunks, the unit of retrieval.
// Chunk ids are deterministic per (file key, index) so re-ingesting the same
// file upserts rather than duplicates.
package chunkstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TextChunk is one embedded slice of a source document.
type TextChunk struct {
	ID            string
	BotID         string
	DatasourceID  string
	Content       string
	SourceFileKey string
	Embedding     []float32
	CreatedAt     time.Time
}

// ChunkID derives the stable id for the chunk at index within fileKey.
func ChunkID(fileKey string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", fileKey, index)))
	return hex.EncodeToString(sum[:])
}

// Store is the chunk persistence contract. Put upserts on id; ListByBot
// returns every chunk belonging to a bot, ordered by creation time.
type Store interface {
	Put(ctx context.Context, chunk TextChunk) error
	ListByBot(ctx context.Context, botID string) ([]TextChunk, error)
}
