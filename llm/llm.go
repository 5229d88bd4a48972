package llm

import (
	"context"
	"errors"
)

// ErrProviderUnavailable marks transport failures against a model
// provider. Callers distinguish it from generation errors with errors.Is.
var ErrProviderUnavailable = errors.New("model provider unavailable")

// Message is a chat message in a provider-agnostic format.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithModel overrides the provider's configured model for one call.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider is the contract for a language model backend. Implementations do
// not retry; transport failures surface to the caller.
type Provider interface {
	// Generate sends a single prompt and returns the full response.
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)

	// Chat sends a chat history and returns the full response.
	Chat(ctx context.Context, history []Message, opts ...Option) (string, error)

	// ChatStream sends a chat history and streams response fragments in
	// generation order. The channel is closed when the model signals
	// completion or when the stream fails; a failed stream reports its
	// error through the errc channel.
	ChatStream(ctx context.Context, history []Message, opts ...Option) (<-chan string, <-chan error, error)
}
