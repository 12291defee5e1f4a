package memory

import (
	"context"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// Attempt is a recorded question-set attempt.
type Attempt struct {
	ID               string
	LearnerID        string
	TopicID          string
	SetID            string
	TotalMarks       int
	Score            float64
	TimeTakenSeconds int
	TakenAt          time.Time
	Responses        []Response
	Finalized        bool
}

// Response is a single answered question within an attempt.
type Response struct {
	QuestionID       string
	SelectedOption   string
	Correct          bool
	TimeTakenSeconds int
}

// AttemptRecorder is an in-memory implementation of app.AttemptRecorder.
type AttemptRecorder struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewAttemptRecorder() *AttemptRecorder {
	return &AttemptRecorder{attempts: make(map[string]*Attempt)}
}

func (r *AttemptRecorder) CreateAttempt(_ context.Context, learnerID, topicID, setID string, totalMarks int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt := &Attempt{
		ID:         uuid.NewString(),
		LearnerID:  learnerID,
		TopicID:    topicID,
		SetID:      setID,
		TotalMarks: totalMarks,
	}
	r.attempts[attempt.ID] = attempt
	return attempt.ID, nil
}

func (r *AttemptRecorder) RecordResponse(_ context.Context, attemptID, questionID, selectedOption string, correct bool, timeTakenSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Responses = append(attempt.Responses, Response{
		QuestionID:       questionID,
		SelectedOption:   selectedOption,
		Correct:          correct,
		TimeTakenSeconds: timeTakenSeconds,
	})
	return nil
}

func (r *AttemptRecorder) FinalizeAttempt(_ context.Context, attemptID string, score float64, timeTakenSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Score = score
	attempt.TimeTakenSeconds = timeTakenSeconds
	attempt.TakenAt = time.Now()
	attempt.Finalized = true
	return nil
}

// Attempt returns a recorded attempt; exported for tests and demo tooling.
func (r *AttemptRecorder) Attempt(attemptID string) (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return Attempt{}, false
	}
	out := *attempt
	out.Responses = append([]Response(nil), attempt.Responses...)
	return out, true
}
