package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaceConfig() RaceConfig {
	return RaceConfig{
		ID:     "race-1",
		Models: []ModelSpec{{ID: "m1"}, {ID: "m2"}},
		Rounds: []Round{
			{
				ID: "r1",
				Clues: []Clue{
					{ID: "c1", Prompt: "Capital of France (5)", Answer: "paris", Length: 5},
					{ID: "c2", Prompt: "Opposite of day (5)", Answer: "night", Length: 5},
				},
			},
			{
				ID: "r2",
				Clues: []Clue{
					{ID: "c3", Prompt: "Feline pet (3)", Answer: "cat", Length: 3},
				},
			},
		},
	}
}

func TestRaceConfig_Validate(t *testing.T) {
	assert.NoError(t, validRaceConfig().Validate())

	noRounds := validRaceConfig()
	noRounds.Rounds = nil
	assert.Error(t, noRounds.Validate())

	dupRound := validRaceConfig()
	dupRound.Rounds[1].ID = "r1"
	assert.Error(t, dupRound.Validate())

	dupModel := validRaceConfig()
	dupModel.Models[1].ID = "m1"
	assert.Error(t, dupModel.Validate())

	badClue := validRaceConfig()
	badClue.Rounds[0].Clues[0].Length = 0
	assert.Error(t, badClue.Validate())
}

func TestRaceConfig_TotalClues(t *testing.T) {
	assert.Equal(t, 3, validRaceConfig().TotalClues())
	assert.Equal(t, 0, RaceConfig{}.TotalClues())
}

func TestRaceState_Advance(t *testing.T) {
	state := RaceState{Status: RaceStatusPending}

	require.NoError(t, state.Advance(RaceStatusRunning))
	require.NoError(t, state.Advance(RaceStatusCompleted))

	assert.Error(t, state.Advance(RaceStatusRunning), "completed is terminal")

	state = RaceState{Status: RaceStatusPending}
	assert.Error(t, state.Advance(RaceStatusCompleted), "pending cannot skip running")

	state = RaceState{Status: RaceStatusRunning}
	assert.NoError(t, state.Advance(RaceStatusError))
}

func TestRaceState_BumpProgress(t *testing.T) {
	state := RaceState{TotalClues: 3}

	state.BumpProgress()
	assert.Equal(t, 1, state.CompletedClues)
	assert.Equal(t, 33, state.ProgressPct)

	state.BumpProgress()
	assert.Equal(t, 67, state.ProgressPct)

	state.BumpProgress()
	assert.Equal(t, 100, state.ProgressPct)
}

func TestClue_EffectiveCaseRule(t *testing.T) {
	assert.Equal(t, CaseLower, Clue{}.EffectiveCaseRule())
	assert.Equal(t, CaseUpper, Clue{CaseRule: CaseUpper}.EffectiveCaseRule())
}

func TestRound_EffectiveOutputRule(t *testing.T) {
	assert.Equal(t, OutputJSON, Round{}.EffectiveOutputRule())
	assert.Equal(t, OutputPlain, Round{OutputRule: OutputPlain}.EffectiveOutputRule())
}

func TestRound_Validate(t *testing.T) {
	round := Round{
		ID:    "r1",
		Clues: []Clue{{ID: "c1", Prompt: "p", Answer: "a", Length: 1}},
	}
	assert.NoError(t, round.Validate())

	round.Clues = append(round.Clues, Clue{ID: "c1", Prompt: "p2", Answer: "b", Length: 1})
	assert.Error(t, round.Validate(), "duplicate clue ids rejected")

	assert.Error(t, Round{ID: "r1"}.Validate(), "rounds need at least one clue")
	assert.Error(t, Round{Clues: []Clue{{ID: "c1", Prompt: "p", Answer: "a", Length: 1}}}.Validate(), "rounds need an id")
}

func TestModelSpec_Validate(t *testing.T) {
	temp := func(v float64) *float64 { return &v }

	assert.NoError(t, ModelSpec{ID: "m1"}.Validate())
	assert.NoError(t, ModelSpec{ID: "m1", Temperature: temp(0.7), TopP: temp(0.9), Thinking: ThinkingHigh}.Validate())

	assert.Error(t, ModelSpec{}.Validate(), "id is required")
	assert.Error(t, ModelSpec{ID: "m1", Thinking: "extreme"}.Validate())
	assert.Error(t, ModelSpec{ID: "m1", Temperature: temp(2.5)}.Validate())
	assert.Error(t, ModelSpec{ID: "m1", TopP: temp(0)}.Validate())
}

func TestValidateModelSpecs(t *testing.T) {
	assert.Error(t, ValidateModelSpecs(nil))
	assert.Error(t, ValidateModelSpecs([]ModelSpec{{ID: "m1"}, {ID: "m1"}}))
	assert.NoError(t, ValidateModelSpecs([]ModelSpec{{ID: "m1"}, {ID: "m2"}}))
}
