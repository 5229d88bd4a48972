package chain

import (
	"sync"

	"github.com/vectoscalar/vsgpt/llm"
)

// SessionStore keeps per-session conversation history in memory for the
// lifetime of the process. A session's message list is append-only; only
// that session's ask flow writes to it.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	greeting string
	limit    int
}

type session struct {
	messages []llm.Message
}

func NewSessionStore(greeting string, limit int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		greeting: greeting,
		limit:    limit,
	}
}

// History returns a copy of the session's messages, truncated to the
// most recent limit entries. A new session is seeded with the assistant
// greeting.
func (s *SessionStore) History(sessionID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(sessionID)

	messages := sess.messages
	if s.limit > 0 && len(messages) > s.limit {
		messages = messages[len(messages)-s.limit:]
	}

	out := make([]llm.Message, len(messages))
	copy(out, messages)

	return out
}

func (s *SessionStore) Append(sessionID string, msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(sessionID)
	sess.messages = append(sess.messages, msg)
}

func (s *SessionStore) get(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		if s.greeting != "" {
			sess.messages = append(sess.messages, llm.Message{
				Role:    llm.RoleAssistant,
				Content: s.greeting,
			})
		}

		s.sessions[sessionID] = sess
	}

	return sess
}
