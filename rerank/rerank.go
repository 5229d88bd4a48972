// Package rerank scores query/passage pairs with an external cross-encoder
// model. Evaluating the pair together is slower than vector similarity but
// considerably more precise, so it runs only over the small candidate set
// the similarity stage already selected.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vectoscalar/vsgpt/llm"
)

// Score is the cross-encoder relevance of one input text, addressed by its
// position in the submitted slice.
type Score struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type CrossEncoder interface {
	// Rerank scores every text against the query and returns the scores
	// ordered by descending relevance.
	Rerank(ctx context.Context, query string, texts []string) ([]Score, error)
}

type Config struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HTTPCrossEncoder calls a text-embeddings-inference style /rerank endpoint.
type HTTPCrossEncoder struct {
	url    string
	model  string
	client *http.Client
}

var _ CrossEncoder = (*HTTPCrossEncoder)(nil)

func NewHTTPCrossEncoder(cfg Config) *HTTPCrossEncoder {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPCrossEncoder{
		url:   cfg.URL,
		model: cfg.Model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

func (enc *HTTPCrossEncoder) Rerank(ctx context.Context, query string, texts []string) ([]Score, error) {
	payload := rerankRequest{
		Model: enc.model,
		Query: query,
		Texts: texts,
	}

	data, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, enc.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := enc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reranker: %w: %v", llm.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reranker returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var scores []Score
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	return scores, nil
}
