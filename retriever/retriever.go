// Package retriever composes the layered retrieval pipeline: a
// maximal-marginal-relevance similarity search over the vector store,
// optionally wrapped by a cross-encoder reranking stage, optionally wrapped
// by an LLM relevance filter.
package retriever

import (
	"context"

	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/rerank"
	"github.com/vectoscalar/vsgpt/vector"
)

// Retriever returns the passages most relevant to a query, best first.
// Re-invocation re-runs retrieval; no state is kept between calls.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]vector.Document, error)
}

type Config struct {
	K              int     `yaml:"k"`
	FetchK         int     `yaml:"fetch_k"`
	Lambda         float64 `yaml:"lambda"`
	UseReranker    bool    `yaml:"use_reranker"`
	UseChainFilter bool    `yaml:"use_chain_filter"`
	ShowSources    bool    `yaml:"show_sources"`
}

const (
	DefaultK      = 5
	DefaultFetchK = 50
	DefaultLambda = 0.5
)

func (cfg *Config) applyDefaults() {
	if cfg.K <= 0 {
		cfg.K = DefaultK
	}
	if cfg.FetchK <= 0 {
		cfg.FetchK = DefaultFetchK
	}
	if cfg.Lambda <= 0 || cfg.Lambda > 1 {
		cfg.Lambda = DefaultLambda
	}
}

// Compose wires the pipeline stages in their fixed order. The similarity
// stage is always innermost; reranking and filtering wrap it only when
// their toggles are set.
func Compose(model llm.Provider, enc rerank.CrossEncoder, coll vector.Collection, cfg Config) Retriever {
	cfg.applyDefaults()

	var r Retriever = &SimilarityRetriever{
		Collection: coll,
		K:          cfg.K,
		FetchK:     cfg.FetchK,
		Lambda:     cfg.Lambda,
	}

	if cfg.UseReranker {
		r = &RerankRetriever{
			Base:    r,
			Encoder: enc,
		}
	}

	if cfg.UseChainFilter {
		r = &FilterRetriever{
			Base:  r,
			Model: model,
		}
	}

	return r
}
