package postgres

import (
	"context"
	"fmt"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptRecorder writes attempts and their per-question responses.
type AttemptRecorder struct {
	pool *pgxpool.Pool
}

func NewAttemptRecorder(pool *pgxpool.Pool) *AttemptRecorder {
	return &AttemptRecorder{pool: pool}
}

func (r *AttemptRecorder) CreateAttempt(ctx context.Context, learnerID, topicID, setID string, totalMarks int) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (id, learner_id, topic_id, set_id, total_marks)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, learnerID, topicID, setID, totalMarks)
	if err != nil {
		return "", fmt.Errorf("create attempt: %w", err)
	}
	return id, nil
}

func (r *AttemptRecorder) RecordResponse(ctx context.Context, attemptID, questionID, selectedOption string, correct bool, timeTakenSeconds int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_responses (attempt_id, question_id, selected_option, is_correct, time_taken_seconds)
		 VALUES ($1, $2, $3, $4, $5)`,
		attemptID, questionID, selectedOption, correct, timeTakenSeconds)
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

func (r *AttemptRecorder) FinalizeAttempt(ctx context.Context, attemptID string, score float64, timeTakenSeconds int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET score=$2, time_taken_seconds=$3, taken_at=$4 WHERE id=$1`,
		attemptID, score, timeTakenSeconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}
