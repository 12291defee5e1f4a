package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists adaptive sessions as JSON values in Redis.
// Optimistic versioning rides on WATCH: an update only commits when the
// stored version still matches the one the caller read, so two concurrent
// submissions against one session cannot lose a write.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	key := s.key(session.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var stored domain.Session
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if stored.Version != session.Version {
			return domain.ErrVersionConflict
		}

		next := *session
		next.Version++
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		session.Version = next.Version
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between read and commit.
		return domain.ErrVersionConflict
	}
	return err
}

// DeleteStale sweeps incomplete sessions that started before the cutoff.
// Keys also age out naturally through the store TTL; the sweep exists for
// deployments that configure no TTL.
func (s *SessionStore) DeleteStale(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var session domain.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			continue
		}
		if !session.Completed && session.StartedAt.Before(olderThan) {
			if err := s.client.Del(ctx, key).Err(); err == nil {
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan sessions: %w", err)
	}
	return removed, nil
}

func (s *SessionStore) key(sessionID string) string {
	return "adaptive:session:" + sessionID
}
