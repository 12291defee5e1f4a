package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TrendStore persists per-(learner, topic) proficiency trends with the
// rolling history as a JSONB column.
type TrendStore struct {
	pool *pgxpool.Pool
}

func NewTrendStore(pool *pgxpool.Pool) *TrendStore {
	return &TrendStore{pool: pool}
}

func (s *TrendStore) Get(ctx context.Context, learnerID, topicID string) (domain.Trend, error) {
	var trend domain.Trend
	var history []byte
	err := s.pool.QueryRow(ctx,
		`SELECT learner_id, topic_id, history, score, updated_at
		   FROM proficiency_trends WHERE learner_id=$1 AND topic_id=$2`,
		learnerID, topicID).
		Scan(&trend.LearnerID, &trend.TopicID, &history, &trend.Score, &trend.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trend{}, domain.ErrTrendNotFound
	}
	if err != nil {
		return domain.Trend{}, fmt.Errorf("load trend: %w", err)
	}
	if err := json.Unmarshal(history, &trend.History); err != nil {
		return domain.Trend{}, fmt.Errorf("unmarshal trend history: %w", err)
	}
	return trend, nil
}

func (s *TrendStore) Upsert(ctx context.Context, trend domain.Trend) error {
	history, err := json.Marshal(trend.History)
	if err != nil {
		return fmt.Errorf("marshal trend history: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO proficiency_trends (learner_id, topic_id, history, score, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (learner_id, topic_id)
		 DO UPDATE SET history=EXCLUDED.history, score=EXCLUDED.score, updated_at=EXCLUDED.updated_at`,
		trend.LearnerID, trend.TopicID, history, trend.Score, trend.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert trend: %w", err)
	}
	return nil
}
