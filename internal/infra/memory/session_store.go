package memory

import (
	"context"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore with
// optimistic versioning: Update only applies when the caller holds the
// current version, so concurrent submissions cannot silently lose writes.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

func (s *SessionStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *SessionStore) Update(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return domain.ErrVersionConflict
	}
	session.Version++
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (s *SessionStore) DeleteStale(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if !session.Completed && session.StartedAt.Before(olderThan) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// cloneSession copies the owned slices so callers cannot mutate stored state.
func cloneSession(s domain.Session) domain.Session {
	s.Results = append([]domain.SetResult(nil), s.Results...)
	s.Adjustments = append([]domain.DifficultyAdjustment(nil), s.Adjustments...)
	return s
}
