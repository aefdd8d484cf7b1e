package rag

import (
	"sync"
	"time"

	"docai/types"
)

// ConversationStore keeps a bounded per-session history of question/answer
// turns. The mutex guards map integrity only; two concurrent appends to the
// same session are not serialized against each other beyond that, so under
// concurrent same-session writers the last append wins.
type ConversationStore struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]types.ConversationTurn
}

func NewConversationStore(maxHistory int) *ConversationStore {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &ConversationStore{
		maxHistory: maxHistory,
		sessions:   make(map[string][]types.ConversationTurn),
	}
}

// Append records a turn, evicting the oldest once the bound is exceeded.
func (s *ConversationStore) Append(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], types.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	})
	if len(turns) > s.maxHistory {
		turns = turns[len(turns)-s.maxHistory:]
	}
	s.sessions[sessionID] = turns
}

// History returns the session's turns in insertion order, empty for an
// unknown session.
func (s *ConversationStore) History(sessionID string) []types.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]types.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the session entirely. Idempotent on unknown sessions.
func (s *ConversationStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}
