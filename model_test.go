package vsgpt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshalYAML(t *testing.T) {
	raw := `
model:
  useLocal: true
  localLLM: llama3.2:3b
  temperature: 0.2
  keepAlive: 30m
retriever:
  k: 8
  fetch_k: 80
  lambda: 0.7
  use_reranker: true
vector:
  persistent: true
  path: /var/lib/vsgpt/docs-db/vectors
  collection: handbook
statusRefreshTTL: 90s
greeting: Hello there!
`

	var cfg Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatal(err)
	}

	assert.True(t, cfg.Model.UseLocal)
	assert.Equal(t, "llama3.2:3b", cfg.Model.LocalLLM)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 30*time.Minute, cfg.Model.KeepAlive.Duration())

	assert.Equal(t, 8, cfg.Retriever.K)
	assert.Equal(t, 80, cfg.Retriever.FetchK)
	assert.Equal(t, 0.7, cfg.Retriever.Lambda)
	assert.True(t, cfg.Retriever.UseReranker)
	assert.False(t, cfg.Retriever.UseChainFilter)

	assert.True(t, cfg.Vector.Persistent)
	assert.Equal(t, "handbook", cfg.Vector.Collection)
	assert.Equal(t, 90*time.Second, cfg.StatusRefreshTTL.Duration())
	assert.Equal(t, "Hello there!", cfg.Greeting)
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "llama3.2:1b", cfg.Model.LocalLLM)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.Model.RemoteLLM)
	assert.Equal(t, 8000, cfg.Model.MaxTokens)
	assert.Equal(t, time.Hour, cfg.Model.KeepAlive.Duration())
	assert.Equal(t, "ms-marco-MiniLM-L-12-v2", cfg.Rerank.Model)
	assert.Equal(t, "documents", cfg.Vector.Collection)
	assert.Equal(t, time.Minute, cfg.StatusRefreshTTL.Duration())
	assert.Equal(t, 100, cfg.ConversationMessagesLimit)
	assert.NotEmpty(t, cfg.Greeting)

	// Explicit values survive a defaults pass.
	cfg.Model.MaxTokens = 512
	cfg.ApplyDefaults()
	assert.Equal(t, 512, cfg.Model.MaxTokens)
}

func TestDurationJSONRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	assert.JSONEq(t, `"1m30s"`, string(data))

	var out Duration
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, d, out)
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)

	data, err := yaml.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	// Marshals as the human-readable string, not raw nanoseconds.
	assert.Equal(t, "1m30s", strings.TrimSpace(string(data)))

	var out Duration
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, d, out)
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"not-a-duration"`), &d)
	assert.Error(t, err)
}
