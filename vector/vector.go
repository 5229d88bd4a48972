package vector

import (
	"context"
	"errors"
)

// ErrUnsupportedProvider rejects an embedding provider name the driver
// does not implement.
var ErrUnsupportedProvider = errors.New("unsupported embedding provider")

type Config struct {
	Persistent bool            `yaml:"persistent"`
	Path       string          `yaml:"path"`
	Collection string          `yaml:"collection"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig selects the external embedding model backing a collection.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama" or "openai"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// EmbeddingFunc turns text into a vector. Implementations call out to an
// external embedding model.
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

type VectorDB interface {
	Collection(name string) (Collection, error)
}

type Collection interface {
	AddDocuments(ctx context.Context, docs []Document) error
	DeleteBySource(ctx context.Context, source string) error

	// Query returns up to k documents ordered by similarity to the query,
	// with embeddings and similarity scores populated.
	Query(ctx context.Context, query string, k int) ([]Document, error)

	Count() int
}

type Document struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Similarity float32           `json:"similarity,omitempty"`
}

// Source returns the identity of the file the document was ingested from.
func (doc Document) Source() string {
	return doc.Metadata["source"]
}
