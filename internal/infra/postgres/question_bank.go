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

// QuestionBank reads quiz content from Postgres. It is usually wrapped by a
// caching layer (memory or redis); the queries here stay simple row reads.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	var topic domain.Topic
	err := b.pool.QueryRow(ctx, `SELECT id, name FROM topics WHERE id=$1`, topicID).
		Scan(&topic.ID, &topic.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("load topic: %w", err)
	}
	return topic, nil
}

func (b *QuestionBank) FindSet(ctx context.Context, topicID string, difficulty domain.DifficultyLevel) (domain.QuestionSet, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT id, topic_id, difficulty, min_questions, max_questions
		   FROM question_sets WHERE topic_id=$1 AND difficulty=$2
		  ORDER BY id LIMIT 1`,
		topicID, difficulty.String())
	return scanSet(row)
}

func (b *QuestionBank) FindAnySet(ctx context.Context, topicID string) (domain.QuestionSet, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT id, topic_id, difficulty, min_questions, max_questions
		   FROM question_sets WHERE topic_id=$1
		  ORDER BY id LIMIT 1`,
		topicID)
	return scanSet(row)
}

func (b *QuestionBank) ListQuestions(ctx context.Context, setID string) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT id, prompt, options, correct_option, marks
		   FROM questions WHERE set_id=$1 ORDER BY id`,
		setID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &rawOptions, &q.CorrectOption, &q.Marks); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		var exists bool
		if err := b.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM question_sets WHERE id=$1)`, setID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("probe question set: %w", err)
		}
		if !exists {
			return nil, domain.ErrNoQuestionSets
		}
	}
	return questions, nil
}

func scanSet(row pgx.Row) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	var difficulty string
	err := row.Scan(&set.ID, &set.TopicID, &difficulty, &set.MinQuestions, &set.MaxQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrNoQuestionSets
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	set.Difficulty, err = domain.ParseDifficulty(difficulty)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("question set %s: %w", set.ID, err)
	}
	return set, nil
}
