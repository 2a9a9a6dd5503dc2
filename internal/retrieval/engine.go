// Package retrieval answers questions against a bot's knowledge base: it
// embeds the question, ranks the bot's chunks by Euclidean distance, and
// assembles the top results into a single context string.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sehxxnee/botbuilder/internal/bots"
	"github.com/sehxxnee/botbuilder/internal/chunkstore"
	"github.com/sehxxnee/botbuilder/internal/embedding"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
	"github.com/sehxxnee/botbuilder/pkg/metrics"
)

// ContextDelimiter separates chunks in the assembled context string.
const ContextDelimiter = "\n\n--- CONTEXT ---\n\n"

// Result is the outcome of one retrieval.
type Result struct {
	ContextText string   `json:"context_text"`
	ChunkIDs    []string `json:"chunk_ids"`
}

// Engine ranks chunks for questions.
type Engine struct {
	bots     bots.Store
	chunks   chunkstore.Store
	embedder embedding.Gateway
	topK     int
	metrics  *metrics.Metrics
}

// New creates an Engine. Metrics may be nil.
func New(botStore bots.Store, chunks chunkstore.Store, embedder embedding.Gateway, topK int, m *metrics.Metrics) *Engine {
	return &Engine{bots: botStore, chunks: chunks, embedder: embedder, topK: topK, metrics: m}
}

// Retrieve returns the top-k context for question against botID's chunks.
// Unknown bots return pkg/errors.ErrBotNotFound before any embedding call.
// If the embedder produces no vector for the question, the result is empty
// rather than an error.
func (e *Engine) Retrieve(ctx context.Context, botID, question string) (Result, error) {
	start := time.Now()
	res, err := e.retrieve(ctx, botID, question)
	if e.metrics != nil {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
		case res.ContextText == "":
			outcome = "empty"
		}
		e.metrics.RetrievalsTotal.WithLabelValues(outcome).Inc()
		e.metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	}
	return res, err
}

func (e *Engine) retrieve(ctx context.Context, botID, question string) (Result, error) {
	exists, err := e.bots.Exists(ctx, botID)
	if err != nil {
		return Result{}, fmt.Errorf("checking bot: %w", err)
	}
	if !exists {
		return Result{}, fmt.Errorf("%w: %s", apperrors.ErrBotNotFound, botID)
	}

	queryVec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("embedding question: %w", err)
	}
	if len(queryVec) == 0 {
		return Result{}, nil
	}

	chunks, err := e.chunks.ListByBot(ctx, botID)
	if err != nil {
		return Result{}, fmt.Errorf("listing chunks: %w", err)
	}

	type scored struct {
		chunk    chunkstore.TextChunk
		distance float64
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			continue
		}
		ranked = append(ranked, scored{chunk: c, distance: l2Distance(queryVec, c.Embedding)})
	}
	// ListByBot orders by creation time, so a stable sort keeps older
	// chunks first among equal distances.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	k := e.topK
	if k > len(ranked) {
		k = len(ranked)
	}
	if k == 0 {
		return Result{}, nil
	}

	parts := make([]string, 0, k)
	ids := make([]string, 0, k)
	for _, s := range ranked[:k] {
		parts = append(parts, s.chunk.Content)
		ids = append(ids, s.chunk.ID)
	}
	return Result{
		ContextText: strings.Join(parts, ContextDelimiter),
		ChunkIDs:    ids,
	}, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
