package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionStore persists adaptive sessions with the owned collections stored
// as JSONB columns and a version column for optimistic updates.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	results, adjustments, err := marshalOwned(session)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO adaptive_sessions
		   (id, learner_id, topic_id, initial_difficulty, current_difficulty,
		    total_sets, current_set, results, adjustments, final_proficiency,
		    completed, started_at, ended_at, version)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		session.ID, session.LearnerID, session.TopicID,
		session.InitialDifficulty.String(), session.CurrentDifficulty.String(),
		session.TotalSets, session.CurrentSet, results, adjustments,
		session.FinalProficiency, session.Completed,
		session.StartedAt, session.EndedAt, session.Version)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, learner_id, topic_id, initial_difficulty, current_difficulty,
		        total_sets, current_set, results, adjustments, final_proficiency,
		        completed, started_at, ended_at, version
		   FROM adaptive_sessions WHERE id=$1`, sessionID)

	var session domain.Session
	var initial, current string
	var results, adjustments []byte
	err := row.Scan(&session.ID, &session.LearnerID, &session.TopicID,
		&initial, &current, &session.TotalSets, &session.CurrentSet,
		&results, &adjustments, &session.FinalProficiency,
		&session.Completed, &session.StartedAt, &session.EndedAt, &session.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}

	if session.InitialDifficulty, err = domain.ParseDifficulty(initial); err != nil {
		return domain.Session{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if session.CurrentDifficulty, err = domain.ParseDifficulty(current); err != nil {
		return domain.Session{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := json.Unmarshal(results, &session.Results); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal(adjustments, &session.Adjustments); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal adjustments: %w", err)
	}
	return session, nil
}

func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	results, adjustments, err := marshalOwned(session)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE adaptive_sessions
		    SET current_difficulty=$2, current_set=$3, results=$4, adjustments=$5,
		        final_proficiency=$6, completed=$7, ended_at=$8, version=version+1
		  WHERE id=$1 AND version=$9`,
		session.ID, session.CurrentDifficulty.String(), session.CurrentSet,
		results, adjustments, session.FinalProficiency, session.Completed,
		session.EndedAt, session.Version)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM adaptive_sessions WHERE id=$1)`,
			session.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if exists {
			return domain.ErrVersionConflict
		}
		return domain.ErrSessionNotFound
	}
	session.Version++
	return nil
}

func (s *SessionStore) DeleteStale(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM adaptive_sessions WHERE completed=false AND started_at < $1`,
		olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func marshalOwned(session *domain.Session) ([]byte, []byte, error) {
	results, err := json.Marshal(sliceOrEmpty(session.Results))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal results: %w", err)
	}
	adjustments, err := json.Marshal(sliceOrEmpty(session.Adjustments))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal adjustments: %w", err)
	}
	return results, adjustments, nil
}

// sliceOrEmpty keeps nil slices as JSON arrays, not nulls.
func sliceOrEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
