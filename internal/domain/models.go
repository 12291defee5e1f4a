package domain

import "time"

// Topic is a subject area questions are grouped under.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Question models an MCQ question with exactly one correct option label.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
	Marks         int      `json:"marks"`
}

// QuestionSet is a bounded pool of questions tagged with one difficulty level
// for one topic. Min/MaxQuestions bound how many questions a draw takes.
type QuestionSet struct {
	ID           string          `json:"id"`
	TopicID      string          `json:"topicId"`
	Difficulty   DifficultyLevel `json:"difficulty"`
	MinQuestions int             `json:"minQuestions"`
	MaxQuestions int             `json:"maxQuestions"`
}

// PreparedQuestion is the learner-facing projection of a question; the
// correct option is never included.
type PreparedQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Marks   int      `json:"marks"`
}

// PreparedSet is one issued question set: a random draw from the set's pool,
// bound to the session and to the attempt opened for it.
type PreparedSet struct {
	SessionID        string             `json:"sessionId"`
	AttemptID        string             `json:"attemptId"`
	SetID            string             `json:"setId"`
	SetNumber        int                `json:"setNumber"`
	Difficulty       DifficultyLevel    `json:"difficulty"`
	Questions        []PreparedQuestion `json:"questions"`
	TotalMarks       int                `json:"totalMarks"`
	TimeLimitSeconds int                `json:"timeLimitSeconds"`
}

// SetResult captures the outcome of one completed set. Immutable once
// appended to a session.
type SetResult struct {
	SetNumber          int             `json:"setNumber"`
	Difficulty         DifficultyLevel `json:"difficulty"`
	AttemptID          string          `json:"attemptId"`
	Score              float64         `json:"score"`
	CorrectnessPct     float64         `json:"correctnessPct"`
	CompletionSeconds  int             `json:"completionSeconds"`
	AvgSecondsPerQuest float64         `json:"avgSecondsPerQuestion"`
	FastCompletion     bool            `json:"fastCompletion"`
	TotalQuestions     int             `json:"totalQuestions"`
	CorrectAnswers     int             `json:"correctAnswers"`
}

// DifficultyAdjustment records an actual level change between two sets.
type DifficultyAdjustment struct {
	FromSet int             `json:"fromSet"`
	From    DifficultyLevel `json:"from"`
	To      DifficultyLevel `json:"to"`
	Reason  string          `json:"reason"`
}

// Session is one learner's run through a fixed number of sequential sets for
// one topic, with difficulty re-evaluated after each set.
//
// Invariants: CurrentSet <= TotalSets+1; Completed iff CurrentSet > TotalSets;
// len(Results) == CurrentSet-1. Version supports optimistic concurrency in
// the stores.
type Session struct {
	ID                string                 `json:"sessionId"`
	LearnerID         string                 `json:"learnerId"`
	TopicID           string                 `json:"topicId"`
	InitialDifficulty DifficultyLevel        `json:"initialDifficulty"`
	CurrentDifficulty DifficultyLevel        `json:"currentDifficulty"`
	TotalSets         int                    `json:"totalSets"`
	CurrentSet        int                    `json:"currentSet"`
	Results           []SetResult            `json:"setsCompleted"`
	Adjustments       []DifficultyAdjustment `json:"difficultyAdjustments"`
	FinalProficiency  *float64               `json:"finalProficiencyScore"`
	Completed         bool                   `json:"isCompleted"`
	StartedAt         time.Time              `json:"startTime"`
	EndedAt           *time.Time             `json:"endTime"`
	Version           int64                  `json:"version"`
}

// Trend is the rolling per-(learner, topic) proficiency record.
type Trend struct {
	LearnerID string    `json:"learnerId"`
	TopicID   string    `json:"topicId"`
	History   []float64 `json:"history"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StartResult is the response to starting an adaptive session.
type StartResult struct {
	SessionID         string          `json:"sessionId"`
	TopicName         string          `json:"topicName"`
	InitialDifficulty DifficultyLevel `json:"initialDifficulty"`
	CurrentDifficulty DifficultyLevel `json:"currentDifficulty"`
	Set               PreparedSet     `json:"currentSet"`
	CurrentSetNumber  int             `json:"currentSetNumber"`
	TotalSets         int             `json:"totalSets"`
}

// SessionProgress carries the counters clients render between sets.
type SessionProgress struct {
	CompletedSet      int             `json:"completedSet"`
	TotalSets         int             `json:"totalSets"`
	NextSet           int             `json:"nextSet"`
	CurrentDifficulty DifficultyLevel `json:"currentDifficulty"`
	NextDifficulty    DifficultyLevel `json:"nextDifficulty"`
}

// SessionSummary is the aggregate returned when a session completes.
type SessionSummary struct {
	SessionID         string                 `json:"sessionId"`
	FinalProficiency  float64                `json:"finalProficiencyScore"`
	InitialDifficulty DifficultyLevel        `json:"initialDifficulty"`
	FinalDifficulty   DifficultyLevel        `json:"finalDifficulty"`
	SetsCompleted     int                    `json:"totalSetsCompleted"`
	TotalSeconds      float64                `json:"totalSeconds"`
	Sets              []SetResult            `json:"setsSummary"`
	Adjustments       []DifficultyAdjustment `json:"difficultyAdjustments"`
	ScoreTrajectory   []float64              `json:"performanceTrend"`
}

// SubmitResult is the discriminated outcome of a set submission: either a
// "continue" result carrying NextSet, or a "completed" result carrying Final.
type SubmitResult struct {
	SetResult SetResult       `json:"setResult"`
	Progress  SessionProgress `json:"progress"`
	Completed bool            `json:"sessionComplete"`
	NextSet   *PreparedSet    `json:"nextSet,omitempty"`
	Final     *SessionSummary `json:"finalResults,omitempty"`
}
