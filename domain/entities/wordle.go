package entities

import (
	"fmt"
	"strings"
)

// Wordle board dimensions. Fixed by the game, not configurable.
const (
	WordleWordLength = 5
	WordleMaxGuesses = 6
)

// FeedbackMark is the per-position verdict for a wordle guess letter.
type FeedbackMark string

const (
	MarkCorrect FeedbackMark = "correct"
	MarkPresent FeedbackMark = "present"
	MarkAbsent  FeedbackMark = "absent"
)

// Glyph renders the mark as the board emoji used in prompts.
func (m FeedbackMark) Glyph() string {
	switch m {
	case MarkCorrect:
		return "🟩"
	case MarkPresent:
		return "🟨"
	default:
		return "⬜"
	}
}

// FeedbackGlyphs renders a feedback vector as its glyph string.
func FeedbackGlyphs(feedback []FeedbackMark) string {
	var b strings.Builder
	for _, m := range feedback {
		b.WriteString(m.Glyph())
	}
	return b.String()
}

// WordlePuzzle is the fixed-target puzzle one wordle race is played against.
type WordlePuzzle struct {
	TargetWord string `json:"target_word"`
	WordLength int    `json:"word_length"`
	MaxGuesses int    `json:"max_guesses"`
}

// NewWordlePuzzle validates the target and pins the board dimensions.
func NewWordlePuzzle(target string) (WordlePuzzle, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if len(target) != WordleWordLength {
		return WordlePuzzle{}, fmt.Errorf("target word must be exactly %d letters, got %q", WordleWordLength, target)
	}
	for _, r := range target {
		if r < 'a' || r > 'z' {
			return WordlePuzzle{}, fmt.Errorf("target word must be lowercase a-z, got %q", target)
		}
	}
	return WordlePuzzle{TargetWord: target, WordLength: WordleWordLength, MaxGuesses: WordleMaxGuesses}, nil
}

// WordleGuess is an attempt specialized with the submitted word, its
// feedback vector and the zero-based guess index.
type WordleGuess struct {
	Attempt
	Word       string         `json:"word"`
	Feedback   []FeedbackMark `json:"feedback"`
	GuessIndex int            `json:"guess_index"`
}

// WordleGameState tracks one model's progress through its six-turn game.
// Solved and failed are mutually exclusive; once either is set the game is
// frozen and further guesses are rejected.
type WordleGameState struct {
	ModelID       string        `json:"model_id"`
	Guesses       []WordleGuess `json:"guesses"`
	Solved        bool          `json:"solved"`
	Failed        bool          `json:"failed"`
	SolvedAtGuess int           `json:"solved_at_guess,omitempty"`
	TimeToSolveMs int64         `json:"time_to_solve_ms,omitempty"`
	DidNotFinish  bool          `json:"did_not_finish,omitempty"`

	// CancelledAttempt holds the in-flight attempt interrupted by early
	// termination, with whatever partial text had arrived. It never counts
	// as a guess.
	CancelledAttempt *Attempt `json:"cancelled_attempt,omitempty"`
}

// NewWordleGameState creates an empty game for one model.
func NewWordleGameState(modelID string) *WordleGameState {
	return &WordleGameState{ModelID: modelID}
}

// Finished reports whether the game accepts no further guesses.
func (s *WordleGameState) Finished() bool {
	return s.Solved || s.Failed
}

// AddGuess appends a guess and applies the solve/fail transition. The solved
// flag is driven by the feedback vector, not by string comparison, so padded
// fallback guesses behave consistently.
func (s *WordleGameState) AddGuess(guess WordleGuess) error {
	if s.Finished() {
		return fmt.Errorf("model %s: game is frozen", s.ModelID)
	}
	if len(s.Guesses) >= WordleMaxGuesses {
		return fmt.Errorf("model %s: guess limit reached", s.ModelID)
	}
	guess.GuessIndex = len(s.Guesses)
	s.Guesses = append(s.Guesses, guess)

	if allCorrect(guess.Feedback) {
		s.Solved = true
		s.SolvedAtGuess = len(s.Guesses)
		var total int64
		for _, g := range s.Guesses {
			total += g.E2EMs
		}
		s.TimeToSolveMs = total
	} else if len(s.Guesses) >= WordleMaxGuesses {
		s.Failed = true
	}
	return nil
}

// Freeze marks an unfinished game as failed without consuming a guess,
// used on early termination.
func (s *WordleGameState) Freeze() {
	if !s.Finished() {
		s.Failed = true
		s.DidNotFinish = true
	}
}

// LastGuess returns the most recent guess, or nil for an empty game.
func (s *WordleGameState) LastGuess() *WordleGuess {
	if len(s.Guesses) == 0 {
		return nil
	}
	return &s.Guesses[len(s.Guesses)-1]
}

func allCorrect(feedback []FeedbackMark) bool {
	if len(feedback) != WordleWordLength {
		return false
	}
	for _, m := range feedback {
		if m != MarkCorrect {
			return false
		}
	}
	return true
}
