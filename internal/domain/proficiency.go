package domain

// TrendWindow is how many recent proficiency scores a trend retains.
const TrendWindow = 10

// upwardAdjustmentBonus is added to the final proficiency for each set after
// which the difficulty moved up. Decreases are not penalized.
const upwardAdjustmentBonus = 5.0

// FinalProficiency folds a completed session's set scores into one 0-100
// figure. Later sets weigh more: the i-th set (0-indexed) carries weight
// (i+1)*0.2, so identical scores across sets reproduce that score exactly.
func FinalProficiency(results []SetResult, adjustments []DifficultyAdjustment) float64 {
	if len(results) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for i, r := range results {
		weight := float64(i+1) * 0.2
		weightedSum += r.Score * weight
		totalWeight += weight
	}
	score := weightedSum / totalWeight

	for _, adj := range adjustments {
		if adj.To > adj.From {
			score += upwardAdjustmentBonus
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// AppendTrendScore appends a proficiency score to a trend history, keeps only
// the TrendWindow most recent entries, and returns the new history together
// with its plain mean. The mean here is deliberately unweighted; recency
// weighting only applies within a single session.
func AppendTrendScore(history []float64, score float64) ([]float64, float64) {
	updated := append(append([]float64(nil), history...), score)
	if len(updated) > TrendWindow {
		updated = updated[len(updated)-TrendWindow:]
	}

	var sum float64
	for _, s := range updated {
		sum += s
	}
	return updated, sum / float64(len(updated))
}
