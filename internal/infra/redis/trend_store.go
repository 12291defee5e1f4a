package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// TrendStore keeps proficiency trends as JSON values without expiry; trends
// are long-lived analytics state, not cache.
type TrendStore struct {
	client *redis.Client
}

func NewTrendStore(client *redis.Client) *TrendStore {
	return &TrendStore{client: client}
}

func (s *TrendStore) Get(ctx context.Context, learnerID, topicID string) (domain.Trend, error) {
	raw, err := s.client.Get(ctx, s.key(learnerID, topicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Trend{}, domain.ErrTrendNotFound
	}
	if err != nil {
		return domain.Trend{}, fmt.Errorf("load trend: %w", err)
	}
	var trend domain.Trend
	if err := json.Unmarshal(raw, &trend); err != nil {
		return domain.Trend{}, fmt.Errorf("unmarshal trend: %w", err)
	}
	return trend, nil
}

func (s *TrendStore) Upsert(ctx context.Context, trend domain.Trend) error {
	data, err := json.Marshal(trend)
	if err != nil {
		return fmt.Errorf("marshal trend: %w", err)
	}
	if err := s.client.Set(ctx, s.key(trend.LearnerID, trend.TopicID), data, 0).Err(); err != nil {
		return fmt.Errorf("store trend: %w", err)
	}
	return nil
}

func (s *TrendStore) key(learnerID, topicID string) string {
	return "adaptive:trend:" + learnerID + ":" + topicID
}
