package services

import (
	"math"
	"sort"

	"wordrace/domain/entities"
)

// avgScoreEpsilon is the tolerance used when comparing average scores for
// tie-breaking. Float accumulation makes exact equality unreliable.
const avgScoreEpsilon = 0.01

// RankModels sorts crossword model scores and assigns 1-indexed ranks.
// Primary key is avg_score descending (with epsilon tolerance); ties break
// on more total_correct, lower median e2e, lower e2e variance. The sort is
// stable so submission order decides what nothing else can.
func RankModels(scores []entities.ModelScore) []entities.ModelScore {
	ranked := make([]entities.ModelScore, len(scores))
	copy(ranked, scores)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if math.Abs(a.AvgScore-b.AvgScore) > avgScoreEpsilon {
			return a.AvgScore > b.AvgScore
		}
		if a.TotalCorrect != b.TotalCorrect {
			return a.TotalCorrect > b.TotalCorrect
		}
		if a.MedianE2EMs != b.MedianE2EMs {
			return a.MedianE2EMs < b.MedianE2EMs
		}
		return a.E2EVariance < b.E2EVariance
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// BuildWordleResult derives one model's ranking record from its frozen game
// state. For failed games the closeness keys come from the last guess's
// feedback.
func BuildWordleResult(state *entities.WordleGameState, modelName string) entities.WordleModelResult {
	result := entities.WordleModelResult{
		ModelID:      state.ModelID,
		ModelName:    modelName,
		Solved:       state.Solved,
		GuessCount:   len(state.Guesses),
		DidNotFinish: state.DidNotFinish,
	}
	if state.Solved {
		result.TimeToSolveMs = state.TimeToSolveMs
	} else if last := state.LastGuess(); last != nil {
		correct, present := CountMarks(last.Feedback)
		result.CorrectLetters = correct
		result.PresentLetters = present
		result.ClosenessScore = Closeness(last.Feedback)
	}
	for _, g := range state.Guesses {
		if g.TokenUsage != nil {
			result.TotalTokens += g.TokenUsage.TotalTokens
		}
	}
	return result
}

// RankWordleResults orders wordle results and assigns 1-indexed ranks.
// Solved models rank ahead of unsolved. Among solved: fewer guesses, then
// faster time to solve. Among unsolved: higher closeness, then more guesses
// made (more effort).
func RankWordleResults(results []entities.WordleModelResult) []entities.WordleModelResult {
	ranked := make([]entities.WordleModelResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Solved != b.Solved {
			return a.Solved
		}
		if a.Solved {
			if a.GuessCount != b.GuessCount {
				return a.GuessCount < b.GuessCount
			}
			return a.TimeToSolveMs < b.TimeToSolveMs
		}
		if a.ClosenessScore != b.ClosenessScore {
			return a.ClosenessScore > b.ClosenessScore
		}
		return a.GuessCount > b.GuessCount
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
