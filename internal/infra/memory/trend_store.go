package memory

import (
	"context"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// TrendStore keeps proficiency trends in a process-local map.
type TrendStore struct {
	mu     sync.RWMutex
	trends map[string]domain.Trend
}

func NewTrendStore() *TrendStore {
	return &TrendStore{trends: make(map[string]domain.Trend)}
}

func (s *TrendStore) Get(_ context.Context, learnerID, topicID string) (domain.Trend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trend, ok := s.trends[trendKey(learnerID, topicID)]
	if !ok {
		return domain.Trend{}, domain.ErrTrendNotFound
	}
	trend.History = append([]float64(nil), trend.History...)
	return trend, nil
}

func (s *TrendStore) Upsert(_ context.Context, trend domain.Trend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trend.History = append([]float64(nil), trend.History...)
	s.trends[trendKey(trend.LearnerID, trend.TopicID)] = trend
	return nil
}

func trendKey(learnerID, topicID string) string {
	return learnerID + "|" + topicID
}
