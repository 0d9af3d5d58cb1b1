package services

import (
	"testing"

	"wordrace/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestRankPercentile(t *testing.T) {
	tests := []struct {
		name      string
		latencies []int64
		p         float64
		want      int64
	}{
		{name: "empty input", latencies: nil, p: 0.95, want: 0},
		{name: "single value", latencies: []int64{120}, p: 0.95, want: 120},
		{name: "three values p95 takes the max", latencies: []int64{50, 500, 100}, p: 0.95, want: 500},
		{name: "twenty values p95 takes the 19th", latencies: seq(1, 20), p: 0.95, want: 19},
		{name: "median of five", latencies: []int64{5, 1, 3, 2, 4}, p: 0.5, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestRankPercentile(tt.latencies, tt.p))
		})
	}
}

// seq returns [from..to] as int64s.
func seq(from, to int64) []int64 {
	out := make([]int64, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

// TestScoreClue_CapitalOfFrance walks the canonical three-model example:
// two correct answers at 50 ms and 500 ms plus a fast wrong one at 100 ms.
func TestScoreClue_CapitalOfFrance(t *testing.T) {
	m1 := &entities.Attempt{ModelID: "m1", E2EMs: 50, FormatOK: true, Correct: true}
	m2 := &entities.Attempt{ModelID: "m2", E2EMs: 500, FormatOK: true, Correct: true}
	m3 := &entities.Attempt{ModelID: "m3", E2EMs: 100, FormatOK: true, Correct: false}

	ScoreClue([]*entities.Attempt{m1, m2, m3}, 250)

	// m1: 70 + 30*(500-50)/(500-50) + 2 = 102, capped at 100.
	assert.Equal(t, 100.0, m1.ClueScore)
	// m2: 70 + 30*0, no bonus at 500 ms.
	assert.Equal(t, 70.0, m2.ClueScore)
	// m3: wrong answer scores zero even though it was fast.
	assert.Equal(t, 0.0, m3.ClueScore)
}

func TestScoreClue_SingleModel(t *testing.T) {
	// Alone in the race the window degenerates to min==p95, so
	// speed_norm is zero: base marks only, plus the bonus when under
	// threshold.
	fast := &entities.Attempt{ModelID: "m1", E2EMs: 100, FormatOK: true, Correct: true}
	ScoreClue([]*entities.Attempt{fast}, 250)
	assert.Equal(t, 72.0, fast.ClueScore)

	slow := &entities.Attempt{ModelID: "m1", E2EMs: 3000, FormatOK: true, Correct: true}
	ScoreClue([]*entities.Attempt{slow}, 250)
	assert.Equal(t, 70.0, slow.ClueScore, "no speed credit against an empty window")
}

func TestScoreClue_FailedAttemptsWidenTheWindow(t *testing.T) {
	// A timed-out attempt still contributes its latency to the window and
	// itself scores zero.
	ok := &entities.Attempt{ModelID: "m1", E2EMs: 100, FormatOK: true, Correct: true}
	timedOut := &entities.Attempt{ModelID: "m2", E2EMs: 4000, ErrorKind: entities.ErrorTimeout}

	ScoreClue([]*entities.Attempt{ok, timedOut}, 250)

	assert.Equal(t, 100.0, ok.ClueScore)
	assert.Equal(t, 0.0, timedOut.ClueScore)
}

func TestScoreClue_BonusNeverBreaksTheCap(t *testing.T) {
	a := &entities.Attempt{ModelID: "m1", E2EMs: 10, FormatOK: true, Correct: true}
	b := &entities.Attempt{ModelID: "m2", E2EMs: 1000, FormatOK: true, Correct: true}
	ScoreClue([]*entities.Attempt{a, b}, 250)
	assert.LessOrEqual(t, a.ClueScore, 100.0)
	assert.LessOrEqual(t, b.ClueScore, 100.0)
}

func TestBuildModelScore(t *testing.T) {
	ttft := func(v int64) *int64 { return &v }
	attempts := []entities.Attempt{
		{ModelID: "m1", E2EMs: 100, TTFTMs: ttft(40), Correct: true, FormatOK: true, ClueScore: 100},
		{ModelID: "m1", E2EMs: 300, TTFTMs: ttft(60), Correct: true, FormatOK: true, ClueScore: 80},
		{ModelID: "m1", E2EMs: 200, Correct: false, FormatOK: true, ClueScore: 0},
	}

	score := BuildModelScore("m1", "Model One", attempts)

	assert.Equal(t, "m1", score.ModelID)
	assert.Equal(t, 2, score.TotalCorrect)
	assert.Equal(t, 3, score.TotalAttempt)
	assert.InDelta(t, 66.666, score.AccuracyPct, 0.01)
	assert.InDelta(t, 60.0, score.AvgScore, 0.0001)
	assert.Equal(t, int64(200), score.MedianE2EMs)
	require.NotNil(t, score.MedianTTFTMs)
	assert.Equal(t, int64(40), *score.MedianTTFTMs)
	// Population variance of {100, 300, 200} around mean 200.
	assert.InDelta(t, 6666.666, score.E2EVariance, 0.01)
}

func TestBuildModelScore_NoAttempts(t *testing.T) {
	score := BuildModelScore("m1", "", nil)
	assert.Equal(t, 0, score.TotalAttempt)
	assert.Equal(t, 0.0, score.AvgScore)
	assert.Nil(t, score.MedianTTFTMs)
}

func TestBuildModelScore_TTFTMedianSkipsMissing(t *testing.T) {
	ttft := func(v int64) *int64 { return &v }
	attempts := []entities.Attempt{
		{ModelID: "m1", E2EMs: 100, TTFTMs: ttft(50)},
		{ModelID: "m1", E2EMs: 4000}, // timed out before first token
	}
	score := BuildModelScore("m1", "", attempts)
	require.NotNil(t, score.MedianTTFTMs)
	assert.Equal(t, int64(50), *score.MedianTTFTMs)
}
