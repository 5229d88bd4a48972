package retriever

import (
	"context"

	"github.com/vectoscalar/vsgpt/vector"
)

// SimilarityRetriever is the innermost stage. It fetches a wide candidate
// pool by vector similarity and then selects a small final set with
// maximal marginal relevance, trading relevance against diversity so a
// store full of near-duplicate chunks does not fill every slot with the
// same passage.
type SimilarityRetriever struct {
	Collection vector.Collection
	K          int
	FetchK     int
	Lambda     float64
}

func (r *SimilarityRetriever) Retrieve(ctx context.Context, query string) ([]vector.Document, error) {
	candidates, err := r.Collection.Query(ctx, query, r.FetchK)
	if err != nil {
		return nil, err
	}

	return selectMMR(candidates, r.K, r.Lambda), nil
}

// selectMMR greedily picks up to k candidates maximizing
// lambda*Sim(q,d) - (1-lambda)*max Sim(d,selected). Candidates arrive
// ordered by query similarity, and their embeddings are unit vectors, so
// the dot product is the cosine similarity.
func selectMMR(candidates []vector.Document, k int, lambda float64) []vector.Document {
	if k <= 0 {
		return nil
	}

	if len(candidates) <= 1 {
		return candidates
	}

	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]vector.Document, 0, k)
	remaining := make([]vector.Document, len(candidates))
	copy(remaining, candidates)

	// The most similar candidate is always picked first.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < k && len(remaining) > 0 {
		best := -1
		bestScore := 0.0

		for i, doc := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				if sim := dot(doc.Embedding, s.Embedding); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*float64(doc.Similarity) - (1-lambda)*redundancy
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return selected
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}
