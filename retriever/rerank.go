package retriever

import (
	"context"

	"github.com/vectoscalar/vsgpt/rerank"
	"github.com/vectoscalar/vsgpt/vector"
)

// RerankRetriever reorders the base stage's results by cross-encoder
// relevance. The result count is preserved.
type RerankRetriever struct {
	Base    Retriever
	Encoder rerank.CrossEncoder
}

func (r *RerankRetriever) Retrieve(ctx context.Context, query string) ([]vector.Document, error) {
	docs, err := r.Base.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(docs) <= 1 {
		return docs, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	scores, err := r.Encoder.Rerank(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	reordered := make([]vector.Document, 0, len(docs))
	seen := make(map[int]bool, len(scores))

	for _, score := range scores {
		if score.Index < 0 || score.Index >= len(docs) || seen[score.Index] {
			continue
		}

		seen[score.Index] = true
		reordered = append(reordered, docs[score.Index])
	}

	// Keep anything the encoder failed to score, in original order.
	for i, doc := range docs {
		if !seen[i] {
			reordered = append(reordered, doc)
		}
	}

	return reordered, nil
}
