package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// QuestionBank reads quiz content (topics, sets, questions). Implementations
// may cache freely; the bank is treated as append-mostly and slow-changing.
type QuestionBank interface {
	GetTopic(ctx context.Context, topicID string) (domain.Topic, error)
	FindSet(ctx context.Context, topicID string, difficulty domain.DifficultyLevel) (domain.QuestionSet, error)
	FindAnySet(ctx context.Context, topicID string) (domain.QuestionSet, error)
	ListQuestions(ctx context.Context, setID string) ([]domain.Question, error)
}

// AttemptRecorder persists completed question-set attempts (the score record).
type AttemptRecorder interface {
	CreateAttempt(ctx context.Context, learnerID, topicID, setID string, totalMarks int) (string, error)
	RecordResponse(ctx context.Context, attemptID, questionID, selectedOption string, correct bool, timeTakenSeconds int) error
	FinalizeAttempt(ctx context.Context, attemptID string, score float64, timeTakenSeconds int) error
}

// SessionStore persists adaptive sessions. Update must compare the stored
// version against the incoming one and reject with domain.ErrVersionConflict
// on mismatch, bumping the version on success.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	DeleteStale(ctx context.Context, olderThan time.Time) (int, error)
}

// TrendStore persists per-(learner, topic) proficiency trends.
type TrendStore interface {
	Get(ctx context.Context, learnerID, topicID string) (domain.Trend, error)
	Upsert(ctx context.Context, trend domain.Trend) error
}

// SessionService orchestrates the lifecycle of adaptive quiz sessions.
type SessionService struct {
	bank     QuestionBank
	recorder AttemptRecorder
	sessions SessionStore
	trends   TrendStore
	ladder   domain.Ladder
	now      func() time.Time
	newID    func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSessionService(bank QuestionBank, recorder AttemptRecorder, sessions SessionStore, trends TrendStore, ladder domain.Ladder) *SessionService {
	return NewSessionServiceWithClock(bank, recorder, sessions, trends, ladder, time.Now)
}

// NewSessionServiceWithClock allows deterministic timestamps in tests.
func NewSessionServiceWithClock(bank QuestionBank, recorder AttemptRecorder, sessions SessionStore, trends TrendStore, ladder domain.Ladder, now func() time.Time) *SessionService {
	return &SessionService{
		bank:     bank,
		recorder: recorder,
		sessions: sessions,
		trends:   trends,
		ladder:   ladder,
		now:      now,
		newID:    uuid.NewString,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession creates a new adaptive session and issues its first set.
// The first set is prepared before the session is persisted, so a topic with
// no usable content never leaves a session behind.
func (s *SessionService) StartSession(ctx context.Context, learnerID, topicID string, initial domain.DifficultyLevel, totalSets int) (domain.StartResult, error) {
	if !initial.Valid() {
		return domain.StartResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidDifficulty, int(initial))
	}
	if totalSets < 1 {
		return domain.StartResult{}, fmt.Errorf("%w: got %d", domain.ErrInvalidSetCount, totalSets)
	}

	topic, err := s.bank.GetTopic(ctx, topicID)
	if err != nil {
		return domain.StartResult{}, err
	}

	session := &domain.Session{
		ID:                s.newID(),
		LearnerID:         learnerID,
		TopicID:           topicID,
		InitialDifficulty: initial,
		CurrentDifficulty: initial,
		TotalSets:         totalSets,
		CurrentSet:        1,
		StartedAt:         s.now(),
		Version:           1,
	}

	set, err := s.prepareSet(ctx, session, initial, 1)
	if err != nil {
		return domain.StartResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.StartResult{}, fmt.Errorf("create session: %w", err)
	}

	return domain.StartResult{
		SessionID:         session.ID,
		TopicName:         topic.Name,
		InitialDifficulty: initial,
		CurrentDifficulty: initial,
		Set:               set,
		CurrentSetNumber:  1,
		TotalSets:         totalSets,
	}, nil
}

// SubmitSet grades the answers for the session's current set, records the
// attempt, applies the difficulty ladder, and advances the session. The
// session write is all-or-nothing: any lookup or grading failure leaves the
// stored session untouched.
func (s *SessionService) SubmitSet(ctx context.Context, sessionID string, set domain.PreparedSet, answers map[string]string, completionSeconds int) (domain.SubmitResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if session.Completed {
		return domain.SubmitResult{}, domain.ErrSessionCompleted
	}
	if set.SessionID != session.ID || set.SetNumber != session.CurrentSet {
		return domain.SubmitResult{}, domain.ErrSetMismatch
	}

	result, err := s.gradeSet(ctx, &session, set, answers, completionSeconds)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	next := s.ladder.Next(session.CurrentDifficulty, result.CorrectnessPct, result.FastCompletion)
	if next != session.CurrentDifficulty {
		session.Adjustments = append(session.Adjustments, domain.DifficultyAdjustment{
			FromSet: session.CurrentSet,
			From:    session.CurrentDifficulty,
			To:      next,
			Reason:  fmt.Sprintf("Performance: %.1f%%, Fast: %t", result.CorrectnessPct, result.FastCompletion),
		})
	}

	session.Results = append(session.Results, result)
	completedSet := session.CurrentSet
	session.CurrentDifficulty = next
	session.CurrentSet++

	submit := domain.SubmitResult{
		SetResult: result,
		Progress: domain.SessionProgress{
			CompletedSet:      completedSet,
			TotalSets:         session.TotalSets,
			NextSet:           session.CurrentSet,
			CurrentDifficulty: session.CurrentDifficulty,
			NextDifficulty:    next,
		},
	}

	if session.CurrentSet > session.TotalSets {
		final := domain.FinalProficiency(session.Results, session.Adjustments)
		ended := s.now()
		session.Completed = true
		session.FinalProficiency = &final
		session.EndedAt = &ended

		if err := s.sessions.Update(ctx, &session); err != nil {
			return domain.SubmitResult{}, err
		}

		// Trend bookkeeping is best-effort: a completed session is never
		// lost because analytics failed.
		s.updateTrend(ctx, session.LearnerID, session.TopicID, final)

		submit.Completed = true
		submit.Final = s.summarize(&session, final)
		return submit, nil
	}

	nextSet, err := s.prepareSet(ctx, &session, next, session.CurrentSet)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if err := s.sessions.Update(ctx, &session); err != nil {
		return domain.SubmitResult{}, err
	}

	submit.NextSet = &nextSet
	return submit, nil
}

// SessionStatus returns a snapshot of a session's progress.
func (s *SessionService) SessionStatus(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// DeleteStale sweeps sessions started before the cutoff. Abandoned sessions
// stay Active forever otherwise; this is the external housekeeping hook.
func (s *SessionService) DeleteStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.sessions.DeleteStale(ctx, s.now().Add(-olderThan))
}

// prepareSet draws questions for the session's next set and opens the attempt
// that will record its responses. Lookup falls back from the exact
// (topic, difficulty) set to any set for the topic; the difficulty mismatch is
// tolerated silently so content gaps never block the learner.
func (s *SessionService) prepareSet(ctx context.Context, session *domain.Session, difficulty domain.DifficultyLevel, setNumber int) (domain.PreparedSet, error) {
	qset, err := s.bank.FindSet(ctx, session.TopicID, difficulty)
	if errors.Is(err, domain.ErrNoQuestionSets) {
		qset, err = s.bank.FindAnySet(ctx, session.TopicID)
	}
	if err != nil {
		return domain.PreparedSet{}, err
	}

	questions, err := s.bank.ListQuestions(ctx, qset.ID)
	if err != nil {
		return domain.PreparedSet{}, err
	}
	if len(questions) == 0 {
		return domain.PreparedSet{}, domain.ErrNoQuestions
	}

	drawn := s.drawQuestions(questions, qset.MinQuestions, qset.MaxQuestions)

	totalMarks := 0
	prepared := make([]domain.PreparedQuestion, 0, len(drawn))
	for _, q := range drawn {
		totalMarks += q.Marks
		prepared = append(prepared, domain.PreparedQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
			Marks:   q.Marks,
		})
	}

	attemptID, err := s.recorder.CreateAttempt(ctx, session.LearnerID, session.TopicID, qset.ID, totalMarks)
	if err != nil {
		return domain.PreparedSet{}, fmt.Errorf("create attempt: %w", err)
	}

	return domain.PreparedSet{
		SessionID:        session.ID,
		AttemptID:        attemptID,
		SetID:            qset.ID,
		SetNumber:        setNumber,
		Difficulty:       difficulty,
		Questions:        prepared,
		TotalMarks:       totalMarks,
		TimeLimitSeconds: 30 * len(prepared),
	}, nil
}

// drawQuestions clamps the draw size to the set's bounds, saturating when the
// pool is smaller than the minimum, then takes a uniform random non-repeating
// subset.
func (s *SessionService) drawQuestions(questions []domain.Question, minQ, maxQ int) []domain.Question {
	n := len(questions)
	if maxQ > 0 && n > maxQ {
		n = maxQ
	}
	if n < minQ {
		n = minQ
	}
	if n > len(questions) {
		n = len(questions)
	}

	s.rndMu.Lock()
	order := s.rnd.Perm(len(questions))
	s.rndMu.Unlock()

	drawn := make([]domain.Question, 0, n)
	for _, idx := range order[:n] {
		drawn = append(drawn, questions[idx])
	}
	return drawn
}

// gradeSet compares each answer against the stored correct option (exact
// string match, unanswered counts as wrong), records per-question responses,
// and finalizes the attempt.
func (s *SessionService) gradeSet(ctx context.Context, session *domain.Session, set domain.PreparedSet, answers map[string]string, completionSeconds int) (domain.SetResult, error) {
	stored, err := s.bank.ListQuestions(ctx, set.SetID)
	if err != nil {
		return domain.SetResult{}, err
	}
	byID := make(map[string]domain.Question, len(stored))
	for _, q := range stored {
		byID[q.ID] = q
	}

	totalQuestions := len(set.Questions)
	if totalQuestions == 0 {
		return domain.SetResult{}, domain.ErrNoQuestions
	}

	earned := 0
	correctCount := 0
	perQuestionSeconds := completionSeconds / totalQuestions

	// Grade the whole set before touching the recorder so an unresolvable
	// question id leaves the attempt untouched.
	type gradedResponse struct {
		questionID string
		selected   string
		correct    bool
	}
	graded := make([]gradedResponse, 0, totalQuestions)
	for _, pq := range set.Questions {
		question, ok := byID[pq.ID]
		if !ok {
			return domain.SetResult{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, pq.ID)
		}

		selected := answers[pq.ID]
		correct := selected == question.CorrectOption
		if correct {
			earned += question.Marks
			correctCount++
		}
		graded = append(graded, gradedResponse{questionID: pq.ID, selected: selected, correct: correct})
	}

	for _, g := range graded {
		if err := s.recorder.RecordResponse(ctx, set.AttemptID, g.questionID, g.selected, g.correct, perQuestionSeconds); err != nil {
			return domain.SetResult{}, fmt.Errorf("record response: %w", err)
		}
	}

	rawScore := 0.0
	if set.TotalMarks > 0 {
		rawScore = float64(earned) / float64(set.TotalMarks) * 100
	}
	if err := s.recorder.FinalizeAttempt(ctx, set.AttemptID, rawScore, completionSeconds); err != nil {
		return domain.SetResult{}, fmt.Errorf("finalize attempt: %w", err)
	}

	avg := float64(completionSeconds) / float64(totalQuestions)
	return domain.SetResult{
		SetNumber:          session.CurrentSet,
		Difficulty:         session.CurrentDifficulty,
		AttemptID:          set.AttemptID,
		Score:              rawScore,
		CorrectnessPct:     float64(correctCount) / float64(totalQuestions) * 100,
		CompletionSeconds:  completionSeconds,
		AvgSecondsPerQuest: avg,
		FastCompletion:     domain.IsFastCompletion(float64(completionSeconds), totalQuestions),
		TotalQuestions:     totalQuestions,
		CorrectAnswers:     correctCount,
	}, nil
}

func (s *SessionService) updateTrend(ctx context.Context, learnerID, topicID string, finalProficiency float64) {
	trend, err := s.trends.Get(ctx, learnerID, topicID)
	switch {
	case errors.Is(err, domain.ErrTrendNotFound):
		trend = domain.Trend{
			LearnerID: learnerID,
			TopicID:   topicID,
			History:   []float64{finalProficiency},
			Score:     finalProficiency,
		}
	case err != nil:
		log.Printf("trend lookup failed for learner=%s topic=%s: %v", learnerID, topicID, err)
		return
	default:
		trend.History, trend.Score = domain.AppendTrendScore(trend.History, finalProficiency)
	}
	trend.UpdatedAt = s.now()

	if err := s.trends.Upsert(ctx, trend); err != nil {
		log.Printf("trend update failed for learner=%s topic=%s: %v", learnerID, topicID, err)
	}
}

func (s *SessionService) summarize(session *domain.Session, final float64) *domain.SessionSummary {
	trajectory := make([]float64, 0, len(session.Results))
	for _, r := range session.Results {
		trajectory = append(trajectory, r.Score)
	}

	totalSeconds := 0.0
	if session.EndedAt != nil {
		totalSeconds = session.EndedAt.Sub(session.StartedAt).Seconds()
	}

	return &domain.SessionSummary{
		SessionID:         session.ID,
		FinalProficiency:  final,
		InitialDifficulty: session.InitialDifficulty,
		FinalDifficulty:   session.CurrentDifficulty,
		SetsCompleted:     len(session.Results),
		TotalSeconds:      totalSeconds,
		Sets:              session.Results,
		Adjustments:       session.Adjustments,
		ScoreTrajectory:   trajectory,
	}
}
