package vsgpt

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/rerank"
	"github.com/vectoscalar/vsgpt/retriever"
	"github.com/vectoscalar/vsgpt/vector"
)

const Version = "v1.0"

var (
	ErrStoreUnavailable = errors.New("vector store is empty or missing, ingest documents first")
	ErrMissingQuestion  = errors.New("question is required")
	ErrMissingQuery     = errors.New("query is required")
	ErrNoDocuments      = errors.New("no documents provided")
)

// LastTrainedFile is the sidecar recording when ingestion last completed.
const LastTrainedFile = "last_trained.txt"

const NotTrainedYet = "Not trained yet"

type Config struct {
	Model                     ModelConfig      `yaml:"model"`
	Retriever                 retriever.Config `yaml:"retriever"`
	Rerank                    rerank.Config    `yaml:"rerank"`
	Ingest                    ingest.Config    `yaml:"ingest"`
	Vector                    vector.Config    `yaml:"vector"`
	StatusRefreshTTL          Duration         `yaml:"statusRefreshTTL"`
	ConversationMessagesLimit int              `yaml:"conversationMessagesLimit"`
	Greeting                  string           `yaml:"greeting"`
}

// ModelConfig selects between a locally hosted and a remote hosted
// language model. The choice is made at process start and is not
// switchable mid-session.
type ModelConfig struct {
	UseLocal    bool     `yaml:"useLocal"`
	LocalLLM    string   `yaml:"localLLM"`
	RemoteLLM   string   `yaml:"remoteLLM"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"maxTokens"`
	KeepAlive   Duration `yaml:"keepAlive"`
	OllamaURL   string   `yaml:"ollamaURL"`
	GroqURL     string   `yaml:"groqURL"`
	APIKey      string   `yaml:"apiKey"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Model.LocalLLM == "" {
		cfg.Model.LocalLLM = "llama3.2:1b"
	}
	if cfg.Model.RemoteLLM == "" {
		cfg.Model.RemoteLLM = "llama-3.1-70b-versatile"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 8000
	}
	if cfg.Model.KeepAlive == 0 {
		cfg.Model.KeepAlive = Duration(time.Hour)
	}
	if cfg.Rerank.Model == "" {
		cfg.Rerank.Model = "ms-marco-MiniLM-L-12-v2"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "documents"
	}
	if cfg.StatusRefreshTTL == 0 {
		cfg.StatusRefreshTTL = Duration(time.Minute)
	}
	if cfg.ConversationMessagesLimit == 0 {
		cfg.ConversationMessagesLimit = 100
	}
	if cfg.Greeting == "" {
		cfg.Greeting = "Hi! I'm VS-Bot. How can I assist you today?"
	}
}

// NewLLMProvider builds the configured language model provider.
func NewLLMProvider(cfg ModelConfig) llm.Provider {
	if cfg.UseLocal {
		return llm.NewOllamaProvider(cfg.OllamaURL, cfg.LocalLLM, cfg.KeepAlive.Duration())
	}

	return llm.NewGroqProvider(cfg.GroqURL, cfg.APIKey, cfg.RemoteLLM)
}

// Status is the read-only derived state surfaced to clients. It is
// recomputed at most once per refresh window.
type Status struct {
	Version       string `json:"version"`
	LastTrained   string `json:"last_trained"`
	FilesIngested int    `json:"files_ingested"`
	Ready         bool   `json:"ready"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}
