package entities

import (
	"fmt"
	"strings"
)

// CaseRule controls how normalized answers are cased.
type CaseRule string

const (
	CaseLower CaseRule = "lower"
	CaseUpper CaseRule = "upper"
	CaseTitle CaseRule = "title"
	CaseAsIs  CaseRule = "as-is"
)

// OutputRule controls the expected shape of raw model output for a round.
type OutputRule string

const (
	OutputPlain OutputRule = "plain"
	OutputJSON  OutputRule = "json"
)

// Clue is a single crossword question with its canonical answer.
type Clue struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Answer      string   `json:"answer"`
	Length      int      `json:"length"`
	AllowHyphen bool     `json:"allow_hyphen,omitempty"`
	CaseRule    CaseRule `json:"case_rule,omitempty"`
}

// EffectiveCaseRule returns the clue's case rule, defaulting to lower.
func (c Clue) EffectiveCaseRule() CaseRule {
	if c.CaseRule == "" {
		return CaseLower
	}
	return c.CaseRule
}

// Validate checks the clue for structural problems.
func (c Clue) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("clue requires a non-empty id")
	}
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("clue %s: prompt must not be empty", c.ID)
	}
	if strings.TrimSpace(c.Answer) == "" {
		return fmt.Errorf("clue %s: answer must not be empty", c.ID)
	}
	if c.Length <= 0 {
		return fmt.Errorf("clue %s: length must be positive, got %d", c.ID, c.Length)
	}
	switch c.EffectiveCaseRule() {
	case CaseLower, CaseUpper, CaseTitle, CaseAsIs:
	default:
		return fmt.Errorf("clue %s: unknown case rule %q", c.ID, c.CaseRule)
	}
	return nil
}

// Round is an ordered group of clues sharing output rules and limits.
type Round struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Clues       []Clue     `json:"clues"`
	OutputRule  OutputRule `json:"output_rule,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	TimeLimitMs int64      `json:"time_limit_ms,omitempty"`
}

// EffectiveOutputRule returns the round's output rule, defaulting to json.
func (r Round) EffectiveOutputRule() OutputRule {
	if r.OutputRule == "" {
		return OutputJSON
	}
	return r.OutputRule
}

// Validate checks the round and all of its clues.
func (r Round) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("round requires a non-empty id")
	}
	if len(r.Clues) == 0 {
		return fmt.Errorf("round %s: at least one clue is required", r.ID)
	}
	switch r.EffectiveOutputRule() {
	case OutputPlain, OutputJSON:
	default:
		return fmt.Errorf("round %s: unknown output rule %q", r.ID, r.OutputRule)
	}
	seen := make(map[string]bool, len(r.Clues))
	for _, clue := range r.Clues {
		if err := clue.Validate(); err != nil {
			return fmt.Errorf("round %s: %w", r.ID, err)
		}
		if seen[clue.ID] {
			return fmt.Errorf("round %s: duplicate clue id %q", r.ID, clue.ID)
		}
		seen[clue.ID] = true
	}
	return nil
}
