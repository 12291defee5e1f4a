package app_test

import (
	"context"
	"errors"
	"testing"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
)

func TestStartSessionIssuesFirstSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.TopicName != "Arithmetic" {
		t.Fatalf("expected topic name echoed, got %q", start.TopicName)
	}
	if start.CurrentSetNumber != 1 || start.TotalSets != 2 {
		t.Fatalf("expected set 1 of 2, got %d of %d", start.CurrentSetNumber, start.TotalSets)
	}
	if len(start.Set.Questions) != 5 {
		t.Fatalf("expected 5-question payload, got %d", len(start.Set.Questions))
	}
	if start.Set.TimeLimitSeconds != 150 {
		t.Fatalf("expected 30s per question, got %d", start.Set.TimeLimitSeconds)
	}
	if start.Set.Difficulty != domain.Easy {
		t.Fatalf("expected easy label, got %s", start.Set.Difficulty)
	}
	for _, q := range start.Set.Questions {
		if q.Prompt == "" || len(q.Options) == 0 {
			t.Fatalf("question payload incomplete: %+v", q)
		}
	}
}

func TestSubmitAllCorrectFastRaisesDifficulty(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// All correct in 60s: 12s per question, comfortably fast.
	result, err := f.service.SubmitSet(ctx, start.SessionID, start.Set, f.correctAnswers(start.Set), 60)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Completed {
		t.Fatalf("session should continue after set 1 of 2")
	}
	if result.SetResult.CorrectnessPct != 100 || !result.SetResult.FastCompletion {
		t.Fatalf("unexpected metrics: %+v", result.SetResult)
	}
	if result.Progress.NextDifficulty != domain.Medium {
		t.Fatalf("expected raise to Medium, got %s", result.Progress.NextDifficulty)
	}
	if result.NextSet == nil || result.NextSet.Difficulty != domain.Medium {
		t.Fatalf("expected a Medium follow-up set, got %+v", result.NextSet)
	}
	if result.NextSet.SetNumber != 2 {
		t.Fatalf("expected set number 2, got %d", result.NextSet.SetNumber)
	}

	status, err := f.service.SessionStatus(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Adjustments) != 1 || status.Adjustments[0].To != domain.Medium {
		t.Fatalf("expected one upward adjustment, got %+v", status.Adjustments)
	}
}

func TestPoorPerformanceDropsDifficulty(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Medium, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// No answers at all: every question graded wrong.
	result, err := f.service.SubmitSet(ctx, start.SessionID, start.Set, nil, 200)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.SetResult.Score != 0 || result.SetResult.CorrectAnswers != 0 {
		t.Fatalf("expected zero score, got %+v", result.SetResult)
	}
	if result.Progress.NextDifficulty != domain.Easy {
		t.Fatalf("expected drop to Easy, got %s", result.Progress.NextDifficulty)
	}
}

func TestSessionCompletesAfterTotalSets(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	set := start.Set
	for i := 1; i <= 3; i++ {
		result, err := f.service.SubmitSet(ctx, start.SessionID, set, f.holdAnswers(set), 150)
		if err != nil {
			t.Fatalf("submit set %d: %v", i, err)
		}
		if i < 3 {
			if result.Completed {
				t.Fatalf("completed too early at set %d", i)
			}
			set = *result.NextSet
			continue
		}
		if !result.Completed {
			t.Fatalf("expected completion after set 3")
		}
		if result.NextSet != nil {
			t.Fatalf("completed result must not carry a next set")
		}
		if result.Final == nil || result.Final.SetsCompleted != 3 {
			t.Fatalf("expected final summary over 3 sets, got %+v", result.Final)
		}
	}

	status, err := f.service.SessionStatus(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Completed || len(status.Results) != 3 || status.CurrentSet != 4 {
		t.Fatalf("unexpected terminal state: completed=%v results=%d set=%d",
			status.Completed, len(status.Results), status.CurrentSet)
	}
	if status.FinalProficiency == nil || status.EndedAt == nil {
		t.Fatalf("expected final score and end time set")
	}

	// Submitting again must be rejected without mutation.
	if _, err := f.service.SubmitSet(ctx, start.SessionID, set, nil, 10); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestFallbackToAnySetForTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// T2 only has a Hard set; asking for Easy silently serves it.
	start, err := f.service.StartSession(ctx, "L1", "T2", domain.Easy, 1)
	if err != nil {
		t.Fatalf("start with fallback: %v", err)
	}
	if start.InitialDifficulty != domain.Easy || start.Set.Difficulty != domain.Easy {
		t.Fatalf("fallback must keep the requested label, got %s", start.Set.Difficulty)
	}
	if start.Set.SetID != "t2-hard" {
		t.Fatalf("expected the hard set's questions, got %s", start.Set.SetID)
	}
}

func TestStartSessionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.service.StartSession(ctx, "L1", "T1", domain.DifficultyLevel(7), 2); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
	if _, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 0); !errors.Is(err, domain.ErrInvalidSetCount) {
		t.Fatalf("expected invalid set count, got %v", err)
	}
	if _, err := f.service.StartSession(ctx, "L1", "missing", domain.Easy, 2); !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("expected topic not found, got %v", err)
	}
	if _, err := f.service.StartSession(ctx, "L1", "T3", domain.Easy, 2); !errors.Is(err, domain.ErrNoQuestionSets) {
		t.Fatalf("expected no question sets, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.service.SubmitSet(ctx, "missing", domain.PreparedSet{}, nil, 10); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	stale := start.Set
	stale.SetNumber = 5
	if _, err := f.service.SubmitSet(ctx, start.SessionID, stale, nil, 10); !errors.Is(err, domain.ErrSetMismatch) {
		t.Fatalf("expected set mismatch, got %v", err)
	}
}

func TestFailedSubmitLeavesAttemptAndSessionUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// A payload carrying a question id the bank no longer knows must fail
	// before any response lands on the attempt.
	tampered := start.Set
	tampered.Questions = append([]domain.PreparedQuestion(nil), start.Set.Questions...)
	tampered.Questions[2].ID = "ghost"

	if _, err := f.service.SubmitSet(ctx, start.SessionID, tampered, f.correctAnswers(start.Set), 60); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	attempt, ok := f.recorder.Attempt(start.Set.AttemptID)
	if !ok {
		t.Fatalf("expected the open attempt to survive")
	}
	if len(attempt.Responses) != 0 || attempt.Finalized {
		t.Fatalf("failed submit must not touch the attempt, got %d responses finalized=%v",
			len(attempt.Responses), attempt.Finalized)
	}

	status, err := f.service.SessionStatus(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentSet != 1 || len(status.Results) != 0 || len(status.Adjustments) != 0 {
		t.Fatalf("failed submit must not advance the session, got set=%d results=%d adjustments=%d",
			status.CurrentSet, len(status.Results), len(status.Adjustments))
	}
}

func TestAttemptRecordingOnSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.SubmitSet(ctx, start.SessionID, start.Set, f.correctAnswers(start.Set), 60); err != nil {
		t.Fatalf("submit: %v", err)
	}

	attempt, ok := f.recorder.Attempt(start.Set.AttemptID)
	if !ok {
		t.Fatalf("expected recorded attempt")
	}
	if !attempt.Finalized || attempt.Score != 100 {
		t.Fatalf("expected finalized attempt at 100, got %+v", attempt)
	}
	if len(attempt.Responses) != len(start.Set.Questions) {
		t.Fatalf("expected one response per question, got %d", len(attempt.Responses))
	}
}

func TestTrendRollsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	for i := 0; i < 2; i++ {
		start, err := f.service.StartSession(ctx, "L1", "T1", domain.Easy, 1)
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if _, err := f.service.SubmitSet(ctx, start.SessionID, start.Set, f.correctAnswers(start.Set), 60); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	trend, err := f.trends.Get(ctx, "L1", "T1")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(trend.History))
	}
	// Single perfect set both times: weighted average 100 with no bonus room.
	if trend.Score != 100 {
		t.Fatalf("expected trend score 100, got %.2f", trend.Score)
	}
}

type fixture struct {
	service  *app.SessionService
	bank     *memory.QuestionBank
	recorder *memory.AttemptRecorder
	trends   *memory.TrendStore
	correct  map[string]string
}

// correctAnswers answers every question in the payload correctly.
func (f *fixture) correctAnswers(set domain.PreparedSet) map[string]string {
	answers := make(map[string]string, len(set.Questions))
	for _, q := range set.Questions {
		answers[q.ID] = f.correct[q.ID]
	}
	return answers
}

// holdAnswers gets 3 of 5 right (60%), enough to keep the current level.
func (f *fixture) holdAnswers(set domain.PreparedSet) map[string]string {
	answers := make(map[string]string, len(set.Questions))
	for i, q := range set.Questions {
		if i < 3 {
			answers[q.ID] = f.correct[q.ID]
		} else {
			answers[q.ID] = "wrong"
		}
	}
	return answers
}

func newFixture() *fixture {
	bank := memory.NewQuestionBank()
	correct := make(map[string]string)

	bank.AddTopic(domain.Topic{ID: "T1", Name: "Arithmetic"})
	bank.AddTopic(domain.Topic{ID: "T2", Name: "Geometry"})
	bank.AddTopic(domain.Topic{ID: "T3", Name: "Empty"})

	addSet := func(id, topicID string, difficulty domain.DifficultyLevel) {
		questions := make([]domain.Question, 0, 5)
		for i := 1; i <= 5; i++ {
			qid := id + "-q" + string(rune('0'+i))
			questions = append(questions, domain.Question{
				ID:            qid,
				Prompt:        "Pick the right option",
				Options:       []string{"right", "wrong"},
				CorrectOption: "right",
				Marks:         1,
			})
			correct[qid] = "right"
		}
		bank.AddSet(domain.QuestionSet{
			ID: id, TopicID: topicID, Difficulty: difficulty,
			MinQuestions: 5, MaxQuestions: 5,
		}, questions)
	}

	for _, level := range []domain.DifficultyLevel{domain.VeryEasy, domain.Easy, domain.Medium, domain.Hard, domain.VeryHard} {
		addSet("t1-"+level.String(), "T1", level)
	}
	addSet("t2-hard", "T2", domain.Hard)

	recorder := memory.NewAttemptRecorder()
	trends := memory.NewTrendStore()
	service := app.NewSessionService(bank, recorder, memory.NewSessionStore(), trends, domain.DefaultLadder())

	return &fixture{service: service, bank: bank, recorder: recorder, trends: trends, correct: correct}
}
