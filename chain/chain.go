// Package chain binds the composed retrieval pipeline and a language
// model into a question-answering flow with streamed output and
// session-scoped history.
package chain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/retriever"
	"github.com/vectoscalar/vsgpt/vector"
)

const systemPrompt = `You are a helpful assistant that answers questions about the user's documents.
Use only the provided context to answer. If the context does not contain the answer, say that no relevant information was found in the documents.

Context:
%s`

const emptyContext = "(no relevant passages were found for this question)"

type Config struct {
	Temperature float64
	MaxTokens   int
}

type Chain struct {
	retriever retriever.Retriever
	model     llm.Provider
	sessions  *SessionStore
	cfg       Config
	log       *zap.Logger
}

func New(r retriever.Retriever, model llm.Provider, sessions *SessionStore, cfg Config) *Chain {
	return &Chain{
		retriever: r,
		model:     model,
		sessions:  sessions,
		cfg:       cfg,
		log: zap.L().With(
			zap.String("service", "chain"),
		),
	}
}

// Ask answers a question against the indexed documents. Retrieval runs
// before the call returns, so retrieval failures surface as the error.
// The returned channel carries one SourceBatch, then text fragments in
// generation order, and closes when the model signals completion. The
// final answer is appended to the session history by this flow only.
func (c *Chain) Ask(ctx context.Context, question, sessionID string) (<-chan Event, error) {
	log := c.log.With(
		zap.String("session_id", sessionID),
	)

	docs, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	history := c.sessions.History(sessionID)
	c.sessions.Append(sessionID, llm.Message{Role: llm.RoleUser, Content: question})

	messages := c.buildMessages(docs, history, question)

	fragments, errc, err := c.model.ChatStream(ctx, messages,
		llm.WithTemperature(c.cfg.Temperature),
		llm.WithMaxTokens(c.cfg.MaxTokens),
	)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)

	go func() {
		defer close(events)

		send := func(event Event) bool {
			select {
			case events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(SourceBatch{Documents: docs}) {
			return
		}

		var answer strings.Builder
		for fragment := range fragments {
			answer.WriteString(fragment)
			if !send(TextFragment{Content: fragment}) {
				return
			}
		}

		if err := <-errc; err != nil {
			log.Error("generation failed", zap.Error(err))
			send(Failure{Err: err})
			return
		}

		c.sessions.Append(sessionID, llm.Message{
			Role:    llm.RoleAssistant,
			Content: answer.String(),
		})

		log.Info("answer generated",
			zap.Int("sources", len(docs)),
			zap.Int("length", answer.Len()),
		)
	}()

	return events, nil
}

func (c *Chain) buildMessages(docs []vector.Document, history []llm.Message, question string) []llm.Message {
	contextText := emptyContext
	if len(docs) > 0 {
		var b strings.Builder
		for i, doc := range docs {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString("[" + doc.Source() + "] ")
			b.WriteString(doc.Content)
		}
		contextText = b.String()
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemPrompt, contextText),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	return messages
}
