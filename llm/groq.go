package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GroqProvider talks to a remote hosted model through Groq's
// OpenAI-compatible chat completions API.
type GroqProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Provider = (*GroqProvider)(nil)

func NewGroqProvider(baseURL, apiKey, model string) *GroqProvider {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}

	return &GroqProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type groqChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type groqChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
		Delta   Message `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GroqProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts...)
}

func (p *GroqProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	resp, err := p.send(ctx, history, false, opts...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}

	if out.Error != nil {
		return "", fmt.Errorf("groq: %s", out.Error.Message)
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq: empty response")
	}

	return out.Choices[0].Message.Content, nil
}

func (p *GroqProvider) ChatStream(ctx context.Context, history []Message, opts ...Option) (<-chan string, <-chan error, error) {
	resp, err := p.send(ctx, history, true, opts...)
	if err != nil {
		return nil, nil, err
	}

	fragments := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)
		defer resp.Body.Close()

		// Server-sent events, one "data:" line per delta.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk groqChatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				errc <- fmt.Errorf("decode groq chunk: %w", err)
				return
			}

			if chunk.Error != nil {
				errc <- fmt.Errorf("groq: %s", chunk.Error.Message)
				return
			}

			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			select {
			case fragments <- delta:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errc <- err
		}
	}()

	return fragments, errc, nil
}

func (p *GroqProvider) send(ctx context.Context, history []Message, stream bool, opts ...Option) (*http.Response, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	payload := groqChatRequest{
		Model:       model,
		Messages:    history,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stream:      stream,
	}

	data, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq: %w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("groq returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return resp, nil
}
