package retriever

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/persistence/chromem"
	"github.com/vectoscalar/vsgpt/rerank"
	"github.com/vectoscalar/vsgpt/vector"
)

// tokenEmbedding is a deterministic offline embedding: tokens hashed into
// a fixed number of dimensions, normalized to a unit vector. Texts sharing
// tokens end up similar, which is all these tests need.
func tokenEmbedding(ctx context.Context, text string) ([]float32, error) {
	const dims = 64

	vec := make([]float32, dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?:;\"'")
		if token == "" {
			continue
		}

		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

func newTestCollection(t *testing.T, docs []vector.Document) vector.Collection {
	t.Helper()

	cfg := vector.Config{
		Persistent: false,
		Collection: "documents",
	}

	db, err := chromem.NewChromemVectorDBWithEmbedding(cfg, tokenEmbedding)
	require.NoError(t, err)

	coll, err := db.Collection(cfg.Collection)
	require.NoError(t, err)

	if len(docs) > 0 {
		require.NoError(t, coll.AddDocuments(context.Background(), docs))
	}

	return coll
}

type staticLLM struct {
	response string
}

func (m *staticLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return m.response, nil
}

func (m *staticLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return m.response, nil
}

func (m *staticLLM) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan string, <-chan error, error) {
	fragments := make(chan string, 1)
	errc := make(chan error, 1)
	fragments <- m.response
	close(fragments)
	close(errc)
	return fragments, errc, nil
}

// reverseEncoder scores texts by reversed input order, so reranking
// visibly reorders results.
type reverseEncoder struct{}

func (reverseEncoder) Rerank(ctx context.Context, query string, texts []string) ([]rerank.Score, error) {
	scores := make([]rerank.Score, len(texts))
	for i := range texts {
		scores[i] = rerank.Score{
			Index: len(texts) - 1 - i,
			Score: float64(i),
		}
	}
	return scores, nil
}

func TestComposeNesting(t *testing.T) {
	coll := newTestCollection(t, nil)
	model := &staticLLM{response: "YES"}
	encoder := reverseEncoder{}

	cases := []struct {
		reranker bool
		filter   bool
	}{
		{false, false},
		{true, false},
		{false, true},
		{true, true},
	}

	for _, tc := range cases {
		name := fmt.Sprintf("reranker=%t filter=%t", tc.reranker, tc.filter)

		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			r := Compose(model, encoder, coll, Config{
				UseReranker:    tc.reranker,
				UseChainFilter: tc.filter,
			})

			if tc.filter {
				outer, ok := r.(*FilterRetriever)
				require.True(t, ok, "filter must be outermost when enabled")
				r = outer.Base
			}

			if tc.reranker {
				mid, ok := r.(*RerankRetriever)
				require.True(t, ok, "reranker must wrap the similarity stage")
				r = mid.Base
			}

			inner, ok := r.(*SimilarityRetriever)
			require.True(t, ok, "similarity search must be innermost")

			assert.Equal(DefaultK, inner.K)
			assert.Equal(DefaultFetchK, inner.FetchK)
		})
	}
}

func TestResultCountBound(t *testing.T) {
	docs := make([]vector.Document, 60)
	for i := range docs {
		docs[i] = vector.Document{
			ID:      fmt.Sprintf("doc_%d", i),
			Content: fmt.Sprintf("refund policy clause number %d about refunds", i),
			Metadata: map[string]string{
				"source": "policy.pdf",
			},
		}
	}

	coll := newTestCollection(t, docs)

	r := Compose(&staticLLM{response: "YES"}, reverseEncoder{}, coll, Config{K: 5, FetchK: 50})

	results, err := r.Retrieve(context.Background(), "what about refunds?")
	require.NoError(t, err)

	assert.Len(t, results, 5)
}

func TestFilterCanEmptyResult(t *testing.T) {
	docs := []vector.Document{
		{ID: "a", Content: "The office cafeteria serves lunch at noon.", Metadata: map[string]string{"source": "handbook.pdf"}},
		{ID: "b", Content: "Parking permits are renewed every January.", Metadata: map[string]string{"source": "handbook.pdf"}},
	}

	coll := newTestCollection(t, docs)

	// The model judges every passage irrelevant.
	r := Compose(&staticLLM{response: "NO"}, nil, coll, Config{UseChainFilter: true})

	results, err := r.Retrieve(context.Background(), "what is the moon made of?")
	require.NoError(t, err)

	assert.Empty(t, results)
}

func TestRerankerPreservesCount(t *testing.T) {
	docs := []vector.Document{
		{ID: "a", Content: "refund policy one", Metadata: map[string]string{"source": "policy.pdf"}},
		{ID: "b", Content: "refund policy two", Metadata: map[string]string{"source": "policy.pdf"}},
		{ID: "c", Content: "refund policy three", Metadata: map[string]string{"source": "policy.pdf"}},
	}

	coll := newTestCollection(t, docs)

	base := Compose(nil, nil, coll, Config{})
	wrapped := Compose(nil, reverseEncoder{}, coll, Config{UseReranker: true})

	ctx := context.Background()

	baseline, err := base.Retrieve(ctx, "refund policy")
	require.NoError(t, err)

	reranked, err := wrapped.Retrieve(ctx, "refund policy")
	require.NoError(t, err)

	assert.Len(t, reranked, len(baseline))

	// Same documents, reversed order.
	for i := range baseline {
		assert.Equal(t, baseline[i].ID, reranked[len(reranked)-1-i].ID)
	}
}

func TestRefundScenario(t *testing.T) {
	docs := []vector.Document{
		{
			ID:       "refund",
			Content:  "Refunds are processed in 5 days.",
			Metadata: map[string]string{"source": "policy.pdf"},
		},
		{
			ID:       "parking",
			Content:  "Parking permits are renewed every January.",
			Metadata: map[string]string{"source": "handbook.pdf"},
		},
		{
			ID:       "lunch",
			Content:  "The office cafeteria serves lunch at noon.",
			Metadata: map[string]string{"source": "handbook.pdf"},
		},
	}

	coll := newTestCollection(t, docs)

	r := Compose(nil, nil, coll, Config{})

	results, err := r.Retrieve(context.Background(), "How long do refunds take?")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "refund", results[0].ID)
	assert.Equal(t, "Refunds are processed in 5 days.", results[0].Content)
	assert.Equal(t, "policy.pdf", results[0].Source())
}

func TestSelectMMRPrefersDiversity(t *testing.T) {
	near := func(id string) vector.Document {
		return vector.Document{
			ID:         id,
			Embedding:  []float32{1, 0},
			Similarity: 0.99,
		}
	}

	candidates := []vector.Document{
		near("dup1"),
		near("dup2"),
		{ID: "other", Embedding: []float32{0, 1}, Similarity: 0.70},
	}

	selected := selectMMR(candidates, 2, 0.5)
	require.Len(t, selected, 2)

	assert.Equal(t, "dup1", selected[0].ID)
	assert.Equal(t, "other", selected[1].ID, "the near-duplicate should lose to the diverse candidate")
}
