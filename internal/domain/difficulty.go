package domain

import (
	"encoding/json"
	"fmt"
)

// DifficultyLevel is one rung of the five-level difficulty ladder.
type DifficultyLevel int

const (
	VeryEasy DifficultyLevel = iota
	Easy
	Medium
	Hard
	VeryHard
)

var difficultyLabels = [...]string{"Very Easy", "Easy", "Medium", "Hard", "Very Hard"}

// Tuning constants for the difficulty ladder.
const (
	// RaiseThreshold is the correctness percentage at or above which a fast
	// set moves the learner up one level.
	RaiseThreshold = 80.0
	// DefaultLowThreshold is the primary drop threshold: below it the learner
	// moves down one level.
	DefaultLowThreshold = 60.0
	// AlternateLowThreshold is a more forgiving drop threshold, selectable
	// through configuration.
	AlternateLowThreshold = 50.0
	// FastSecondsPerQuestion is the per-question pace budget; averaging under
	// it counts as a fast completion.
	FastSecondsPerQuestion = 20.0
)

func (d DifficultyLevel) Valid() bool {
	return d >= VeryEasy && d <= VeryHard
}

func (d DifficultyLevel) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DifficultyLevel(%d)", int(d))
	}
	return difficultyLabels[d]
}

// ParseDifficulty maps a wire label ("Very Easy" .. "Very Hard") to its level.
func ParseDifficulty(label string) (DifficultyLevel, error) {
	for i, l := range difficultyLabels {
		if l == label {
			return DifficultyLevel(i), nil
		}
	}
	return VeryEasy, fmt.Errorf("%w: %q", ErrInvalidDifficulty, label)
}

// MarshalJSON encodes levels as their wire labels so payloads stay readable.
func (d DifficultyLevel) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(d))
	}
	return json.Marshal(difficultyLabels[d])
}

func (d *DifficultyLevel) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	level, err := ParseDifficulty(label)
	if err != nil {
		return err
	}
	*d = level
	return nil
}

// Ladder holds the transition rule between adjacent difficulty levels.
// LowThreshold defaults to DefaultLowThreshold; deployments that prefer the
// softer profile set it to AlternateLowThreshold via config.
type Ladder struct {
	LowThreshold float64
}

func DefaultLadder() Ladder {
	return Ladder{LowThreshold: DefaultLowThreshold}
}

// Next returns the difficulty for the following set given the correctness
// percentage and pace of the one just completed. It is total over the five
// levels and saturates at both ends.
func (l Ladder) Next(current DifficultyLevel, correctnessPct float64, fast bool) DifficultyLevel {
	switch {
	case correctnessPct >= RaiseThreshold && fast:
		if current < VeryHard {
			return current + 1
		}
	case correctnessPct < l.LowThreshold:
		if current > VeryEasy {
			return current - 1
		}
	}
	return current
}

// IsFastCompletion reports whether the average time per question came in
// under the fixed pace budget.
func IsFastCompletion(completionSeconds float64, questionCount int) bool {
	if questionCount <= 0 {
		return false
	}
	return completionSeconds/float64(questionCount) < FastSecondsPerQuestion
}
