package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider talks to a locally hosted model through the Ollama chat API.
type OllamaProvider struct {
	baseURL   string
	model     string
	keepAlive time.Duration
	client    *http.Client
}

var _ Provider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, model string, keepAlive time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL:   baseURL,
		model:     model,
		keepAlive: keepAlive,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model     string         `json:"model"`
	Messages  []Message      `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts...)
}

func (p *OllamaProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	resp, err := p.send(ctx, history, false, opts...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}

	return out.Message.Content, nil
}

func (p *OllamaProvider) ChatStream(ctx context.Context, history []Message, opts ...Option) (<-chan string, <-chan error, error) {
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

		// Ollama streams one JSON object per line.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				errc <- fmt.Errorf("decode ollama chunk: %w", err)
				return
			}

			if chunk.Error != "" {
				errc <- fmt.Errorf("ollama: %s", chunk.Error)
				return
			}

			if chunk.Message.Content != "" {
				select {
				case fragments <- chunk.Message.Content:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}

			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errc <- err
		}
	}()

	return fragments, errc, nil
}

func (p *OllamaProvider) send(ctx context.Context, history []Message, stream bool, opts ...Option) (*http.Response, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	payload := ollamaChatRequest{
		Model:    model,
		Messages: history,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}

	if p.keepAlive > 0 {
		payload.KeepAlive = p.keepAlive.String()
	}

	data, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return resp, nil
}
