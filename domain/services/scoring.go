package services

import (
	"math"
	"sort"

	"wordrace/domain/entities"
)

// Scoring weights from the race rules: accuracy dominates, speed is a
// bounded relative reward, and a small kicker rewards sub-threshold
// latencies without letting speed drown correctness.
const (
	accuracyBase   = 70.0
	speedWeight    = 30.0
	speedBonus     = 2.0
	maxClueScore   = 100.0
	percentileRank = 0.95
)

// NearestRankPercentile returns the nearest-rank percentile of latencies:
// the ceil(p*n)-th smallest value, 1-indexed. Zero for an empty input.
func NearestRankPercentile(latencies []int64, p float64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// ScoreClue fills in the clue_score of every attempt for one clue. The
// latency window (min, p95) spans all attempts of the clue regardless of
// correctness, so a wrong-but-fast model still tightens the window.
func ScoreClue(attempts []*entities.Attempt, bonusThresholdMs int64) {
	if len(attempts) == 0 {
		return
	}
	latencies := make([]int64, 0, len(attempts))
	minLat := int64(math.MaxInt64)
	for _, a := range attempts {
		latencies = append(latencies, a.E2EMs)
		if a.E2EMs < minLat {
			minLat = a.E2EMs
		}
	}
	p95 := NearestRankPercentile(latencies, percentileRank)

	for _, a := range attempts {
		a.ClueScore = scoreAttempt(a, minLat, p95, bonusThresholdMs)
	}
}

// scoreAttempt computes one attempt's score given the clue's latency window.
func scoreAttempt(a *entities.Attempt, minLat, p95 int64, bonusThresholdMs int64) float64 {
	if !a.FormatOK || !a.Correct {
		return 0
	}
	window := p95 - minLat
	if window < 1 {
		window = 1
	}
	speedNorm := float64(p95-a.E2EMs) / float64(window)
	if speedNorm < 0 {
		speedNorm = 0
	}
	if speedNorm > 1 {
		speedNorm = 1
	}
	score := accuracyBase + speedWeight*speedNorm
	if a.E2EMs < bonusThresholdMs {
		score += speedBonus
	}
	if score > maxClueScore {
		score = maxClueScore
	}
	return score
}

// BuildModelScore aggregates one model's attempts across all scored clues.
func BuildModelScore(modelID, modelName string, attempts []entities.Attempt) entities.ModelScore {
	score := entities.ModelScore{ModelID: modelID, ModelName: modelName}
	if len(attempts) == 0 {
		return score
	}

	var scoreSum float64
	latencies := make([]int64, 0, len(attempts))
	ttfts := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		score.TotalAttempt++
		if a.Correct {
			score.TotalCorrect++
		}
		scoreSum += a.ClueScore
		latencies = append(latencies, a.E2EMs)
		if a.TTFTMs != nil {
			ttfts = append(ttfts, *a.TTFTMs)
		}
	}

	score.AccuracyPct = 100 * float64(score.TotalCorrect) / float64(score.TotalAttempt)
	score.AvgScore = scoreSum / float64(score.TotalAttempt)
	score.MedianE2EMs = medianInt64(latencies)
	if len(ttfts) > 0 {
		m := medianInt64(ttfts)
		score.MedianTTFTMs = &m
	}
	score.E2EVariance = varianceInt64(latencies)
	return score
}

// medianInt64 returns the lower median of the values.
func medianInt64(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[(len(sorted)-1)/2]
}

// varianceInt64 returns the population variance of the values.
func varianceInt64(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(values))
}
