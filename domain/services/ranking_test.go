package services

import (
	"testing"

	"wordrace/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankModels_AvgScoreWins(t *testing.T) {
	ranked := RankModels([]entities.ModelScore{
		{ModelID: "low", AvgScore: 70},
		{ModelID: "high", AvgScore: 95},
		{ModelID: "mid", AvgScore: 85},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].ModelID)
	assert.Equal(t, "mid", ranked[1].ModelID)
	assert.Equal(t, "low", ranked[2].ModelID)
	for i, s := range ranked {
		assert.Equal(t, i+1, s.Rank)
	}
}

// TestRankModels_TieBreakOnCorrect covers equal averages: more total
// correct answers wins regardless of latency.
func TestRankModels_TieBreakOnCorrect(t *testing.T) {
	x := entities.ModelScore{ModelID: "x", AvgScore: 85.0, TotalCorrect: 4, MedianE2EMs: 300}
	y := entities.ModelScore{ModelID: "y", AvgScore: 85.0, TotalCorrect: 5, MedianE2EMs: 500}

	ranked := RankModels([]entities.ModelScore{x, y})

	assert.Equal(t, "y", ranked[0].ModelID, "more correct answers outranks lower latency")
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "x", ranked[1].ModelID)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRankModels_EpsilonTreatsNearScoresAsEqual(t *testing.T) {
	a := entities.ModelScore{ModelID: "a", AvgScore: 85.001, TotalCorrect: 3}
	b := entities.ModelScore{ModelID: "b", AvgScore: 85.005, TotalCorrect: 5}

	ranked := RankModels([]entities.ModelScore{a, b})

	// The 0.004 difference is below tolerance, so total_correct decides.
	assert.Equal(t, "b", ranked[0].ModelID)
}

func TestRankModels_TieBreakOnLatencyThenVariance(t *testing.T) {
	ranked := RankModels([]entities.ModelScore{
		{ModelID: "slow", AvgScore: 85, TotalCorrect: 5, MedianE2EMs: 500},
		{ModelID: "fast", AvgScore: 85, TotalCorrect: 5, MedianE2EMs: 300},
	})
	assert.Equal(t, "fast", ranked[0].ModelID)

	ranked = RankModels([]entities.ModelScore{
		{ModelID: "jittery", AvgScore: 85, TotalCorrect: 5, MedianE2EMs: 300, E2EVariance: 900},
		{ModelID: "steady", AvgScore: 85, TotalCorrect: 5, MedianE2EMs: 300, E2EVariance: 100},
	})
	assert.Equal(t, "steady", ranked[0].ModelID)
}

// TestRankModels_RanksAreBijective verifies every model gets a distinct
// 1..n rank even under full ties.
func TestRankModels_RanksAreBijective(t *testing.T) {
	ranked := RankModels([]entities.ModelScore{
		{ModelID: "a", AvgScore: 85},
		{ModelID: "b", AvgScore: 85},
		{ModelID: "c", AvgScore: 85},
	})

	seen := make(map[int]bool)
	for _, s := range ranked {
		seen[s.Rank] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
}

func TestBuildWordleResult_Solved(t *testing.T) {
	state := entities.NewWordleGameState("m1")
	require.NoError(t, state.AddGuess(guessFor("slate", "crane", 400)))
	require.NoError(t, state.AddGuess(guessFor("crane", "crane", 600)))

	result := BuildWordleResult(state, "Model One")

	assert.True(t, result.Solved)
	assert.Equal(t, 2, result.GuessCount)
	assert.Equal(t, int64(1000), result.TimeToSolveMs)
	assert.Zero(t, result.ClosenessScore, "closeness keys are failure-side only")
}

func TestBuildWordleResult_FailedUsesLastGuessCloseness(t *testing.T) {
	state := entities.NewWordleGameState("m1")
	for i := 0; i < entities.WordleMaxGuesses; i++ {
		require.NoError(t, state.AddGuess(guessFor("crate", "crane", 100)))
	}
	require.True(t, state.Failed)

	result := BuildWordleResult(state, "")

	// "crate" vs "crane": c,r,a correct, t absent, e correct = 4 greens.
	assert.False(t, result.Solved)
	assert.Equal(t, 4, result.CorrectLetters)
	assert.Equal(t, 0, result.PresentLetters)
	assert.Equal(t, 12, result.ClosenessScore)
}

func TestBuildWordleResult_SumsTokenUsage(t *testing.T) {
	state := entities.NewWordleGameState("m1")
	g := guessFor("slate", "crane", 100)
	g.TokenUsage = &entities.TokenUsage{TotalTokens: 25}
	require.NoError(t, state.AddGuess(g))
	g2 := guessFor("crane", "crane", 100)
	g2.TokenUsage = &entities.TokenUsage{TotalTokens: 30}
	require.NoError(t, state.AddGuess(g2))

	result := BuildWordleResult(state, "")
	assert.Equal(t, 55, result.TotalTokens)
}

func TestRankWordleResults(t *testing.T) {
	results := []entities.WordleModelResult{
		{ModelID: "unsolved-close", Solved: false, GuessCount: 6, ClosenessScore: 10},
		{ModelID: "solved-slow", Solved: true, GuessCount: 3, TimeToSolveMs: 9000},
		{ModelID: "unsolved-far", Solved: false, GuessCount: 6, ClosenessScore: 4},
		{ModelID: "solved-fast", Solved: true, GuessCount: 3, TimeToSolveMs: 4000},
		{ModelID: "solved-early", Solved: true, GuessCount: 2, TimeToSolveMs: 8000},
	}

	ranked := RankWordleResults(results)

	want := []string{"solved-early", "solved-fast", "solved-slow", "unsolved-close", "unsolved-far"}
	for i, id := range want {
		assert.Equal(t, id, ranked[i].ModelID, "position %d", i)
		assert.Equal(t, i+1, ranked[i].Rank)
	}
}

func TestRankWordleResults_UnsolvedEffortBreaksTies(t *testing.T) {
	ranked := RankWordleResults([]entities.WordleModelResult{
		{ModelID: "gave-up", Solved: false, GuessCount: 1, ClosenessScore: 6},
		{ModelID: "fought", Solved: false, GuessCount: 6, ClosenessScore: 6},
	})
	assert.Equal(t, "fought", ranked[0].ModelID, "more guesses made ranks higher at equal closeness")
}

// guessFor builds a wordle guess with real feedback and a fixed latency.
func guessFor(word, target string, e2eMs int64) entities.WordleGuess {
	return entities.WordleGuess{
		Attempt:  entities.Attempt{ModelID: "m1", E2EMs: e2eMs},
		Word:     word,
		Feedback: Feedback(word, target),
	}
}
