package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sehxxnee/botbuilder/pkg/config"
	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

// HTTPGateway talks to an OpenAI-compatible /v1/embeddings endpoint.
type HTTPGateway struct {
	baseURL   string
	model     string
	dimension int
	apiKey    string
	client    *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

func NewHTTP(cfg config.EmbeddingConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		apiKey:    os.Getenv(cfg.APIKeyEnv),
		client:    &http.Client{Timeout: cfg.CallTimeout},
	}
}

func (g *HTTPGateway) Dimension() int {
	return g.dimension
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (g *HTTPGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: []string{text}, Model: g.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", apperrors.ErrEmbeddingUnavailable, resp.StatusCode, msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, nil
	}

	vec := parsed.Data[0].Embedding
	if g.dimension > 0 && len(vec) != g.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d (model %s)",
			len(vec), g.dimension, g.model)
	}
	return vec, nil
}
