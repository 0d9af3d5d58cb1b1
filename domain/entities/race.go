package entities

import (
	"fmt"
	"math"
	"time"
)

// RaceStatus is the public lifecycle state of a race. Transitions are
// monotonic: pending -> running -> (completed | error).
type RaceStatus string

const (
	RaceStatusPending   RaceStatus = "pending"
	RaceStatusRunning   RaceStatus = "running"
	RaceStatusCompleted RaceStatus = "completed"
	RaceStatusError     RaceStatus = "error"
)

// canAdvanceTo encodes the allowed status transitions.
func (s RaceStatus) canAdvanceTo(next RaceStatus) bool {
	switch s {
	case RaceStatusPending:
		return next == RaceStatusRunning || next == RaceStatusError
	case RaceStatusRunning:
		return next == RaceStatusCompleted || next == RaceStatusError
	default:
		return false
	}
}

// RaceConfig is a crossword race submission: ordered rounds raced by a
// fixed model list.
type RaceConfig struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Models    []ModelSpec `json:"models"`
	Rounds    []Round     `json:"rounds"`
	CreatedAt time.Time   `json:"created_at"`
}

// TotalClues counts clues across all rounds. Precomputed once at race start;
// progress_pct is always derived from it.
func (c RaceConfig) TotalClues() int {
	total := 0
	for _, round := range c.Rounds {
		total += len(round.Clues)
	}
	return total
}

// Validate checks the whole submission before any race starts.
func (c RaceConfig) Validate() error {
	if err := ValidateModelSpecs(c.Models); err != nil {
		return err
	}
	if len(c.Rounds) == 0 {
		return fmt.Errorf("at least one round is required")
	}
	seen := make(map[string]bool, len(c.Rounds))
	for _, round := range c.Rounds {
		if err := round.Validate(); err != nil {
			return err
		}
		if seen[round.ID] {
			return fmt.Errorf("duplicate round id %q", round.ID)
		}
		seen[round.ID] = true
	}
	return nil
}

// WordleConfig is a wordle race submission.
type WordleConfig struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Models     []ModelSpec `json:"models"`
	WordLength int         `json:"word_length"`
	MaxGuesses int         `json:"max_guesses"`
	CreatedAt  time.Time   `json:"created_at"`

	// TargetWord is included on the wire only when the caller asked to
	// play along; otherwise it is withheld until the complete event.
	TargetWord string `json:"target_word,omitempty"`
}

// RaceState is the public progress view emitted on every state event.
type RaceState struct {
	Status         RaceStatus `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CompletedClues int        `json:"completed_clues"`
	TotalClues     int        `json:"total_clues"`
	ProgressPct    int        `json:"progress_pct"`
	CurrentRoundID string     `json:"current_round_id,omitempty"`
	CurrentClueID  string     `json:"current_clue_id,omitempty"`
}

// Advance moves the status forward, enforcing monotonicity.
func (s *RaceState) Advance(next RaceStatus) error {
	if !s.Status.canAdvanceTo(next) {
		return fmt.Errorf("illegal race status transition %s -> %s", s.Status, next)
	}
	s.Status = next
	return nil
}

// BumpProgress records one more completed clue and rederives progress_pct.
func (s *RaceState) BumpProgress() {
	s.CompletedClues++
	if s.TotalClues > 0 {
		s.ProgressPct = int(math.Round(100 * float64(s.CompletedClues) / float64(s.TotalClues)))
	}
}

// WordleState is the wordle-mode progress view: per-model game states keyed
// by model id, serialized as an object.
type WordleState struct {
	Status      RaceStatus                  `json:"status"`
	StartedAt   *time.Time                  `json:"started_at,omitempty"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	ModelStates map[string]*WordleGameState `json:"model_states"`
}

// ModelScore is the per-model crossword aggregate across all clues.
type ModelScore struct {
	ModelID      string  `json:"model_id"`
	ModelName    string  `json:"model_name,omitempty"`
	TotalCorrect int     `json:"total_correct"`
	TotalAttempt int     `json:"total_attempts"`
	AccuracyPct  float64 `json:"accuracy_pct"`
	AvgScore     float64 `json:"avg_score"`
	MedianE2EMs  int64   `json:"median_e2e_ms"`
	MedianTTFTMs *int64  `json:"median_ttft_ms,omitempty"`
	E2EVariance  float64 `json:"e2e_variance"`
	Rank         int     `json:"rank"`
}

// ClueResult bundles the scored attempts of one clue.
type ClueResult struct {
	ClueID   string    `json:"clue_id"`
	Answer   string    `json:"answer"`
	Attempts []Attempt `json:"attempts"`
}

// RoundResult carries one round's clue results and per-model averages.
type RoundResult struct {
	RoundID     string       `json:"round_id"`
	ClueResults []ClueResult `json:"clue_results"`
	ModelScores []ModelScore `json:"model_scores"`
}

// RaceResult is the final crossword outcome: ranked model scores plus the
// per-round detail, exposed read-only after completion.
type RaceResult struct {
	RaceID       string        `json:"race_id"`
	Name         string        `json:"name,omitempty"`
	ModelScores  []ModelScore  `json:"model_scores"`
	RoundResults []RoundResult `json:"round_results"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// WordleModelResult is the per-model wordle outcome used for ranking.
type WordleModelResult struct {
	ModelID       string `json:"model_id"`
	ModelName     string `json:"model_name,omitempty"`
	Solved        bool   `json:"solved"`
	GuessCount    int    `json:"guess_count"`
	TimeToSolveMs int64  `json:"time_to_solve_ms,omitempty"`

	// Failure-side ranking keys, derived from the last guess's feedback.
	ClosenessScore int `json:"closeness_score,omitempty"`
	CorrectLetters int `json:"correct_letters,omitempty"`
	PresentLetters int `json:"present_letters,omitempty"`

	TotalTokens  int     `json:"total_tokens,omitempty"`
	TotalCost    float64 `json:"total_cost,omitempty"`
	DidNotFinish bool    `json:"did_not_finish,omitempty"`
	Rank         int     `json:"rank"`
}

// WordleRaceResult is the final wordle outcome. Winner is empty when no
// model solved the puzzle.
type WordleRaceResult struct {
	RaceID      string              `json:"race_id"`
	Name        string              `json:"name,omitempty"`
	TargetWord  string              `json:"target_word"`
	Winner      string              `json:"winner,omitempty"`
	Results     []WordleModelResult `json:"results"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}
