// Package session stores per-session conversation history. Sessions are
// created lazily on first use and grow by one turn per answered question;
// they are never pruned within their lifetime.
package session

import (
	"context"
	"sync"

	"docuchat-backend/models"
)

// Store persists ordered conversation turns per session id. Appends for one
// session are already serialized by the orchestrator; implementations only
// need to be safe for concurrent use across sessions.
type Store interface {
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	Append(ctx context.Context, sessionID string, turn models.Turn) error
}

// MemoryStore keeps histories in process memory, the default lifetime model:
// sessions live until the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.Turn)}
}

func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}
