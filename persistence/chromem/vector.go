package chromem

import (
	"context"
	"fmt"
	"os"

	"github.com/philippgille/chromem-go"

	"github.com/vectoscalar/vsgpt/vector"
)

func NewChromemVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	embedding, err := NewEmbeddingFunc(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	return NewChromemVectorDBWithEmbedding(cfg, embedding)
}

// NewChromemVectorDBWithEmbedding opens a chromem database with an explicit
// embedding function. Tests use this to stay offline.
func NewChromemVectorDBWithEmbedding(cfg vector.Config, embedding vector.EmbeddingFunc) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db, chromem.EmbeddingFunc(embedding)}, nil
}

// NewEmbeddingFunc builds the embedding function for the configured
// external provider.
func NewEmbeddingFunc(cfg vector.EmbeddingConfig) (vector.EmbeddingFunc, error) {
	switch cfg.Provider {
	case "", "ollama":
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}

		fn := chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL)
		return vector.EmbeddingFunc(fn), nil

	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		normalized := true

		fn := chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, apiKey, cfg.Model, &normalized)
		return vector.EmbeddingFunc(fn), nil

	default:
		return nil, fmt.Errorf("%w: %s", vector.ErrUnsupportedProvider, cfg.Provider)
	}
}

type chromemVectorDB struct {
	db        *chromem.DB
	embedding chromem.EmbeddingFunc
}

func (vdb *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	c, err := vdb.db.GetOrCreateCollection(name, nil, vdb.embedding)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.collection.AddDocuments(ctx, documents, 4)
}

func (c *collection) DeleteBySource(ctx context.Context, source string) error {
	where := map[string]string{"source": source}
	return c.collection.Delete(ctx, where, nil)
}

func (c *collection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	if k > c.collection.Count() {
		k = c.collection.Count()
	}

	if k == 0 {
		return nil, nil
	}

	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(results))
	for i, result := range results {
		docs[i] = vector.Document{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Embedding:  result.Embedding,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}
