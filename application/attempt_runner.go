package application

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"wordrace/domain/entities"
	"wordrace/domain/services"
	"wordrace/infrastructure"
)

// ClueRules carries the normalization and validation parameters of the clue
// an attempt answers. Nil rules (wordle guesses) skip crossword validation;
// the wordle engine parses the word itself.
type ClueRules struct {
	OutputRule  entities.OutputRule
	CaseRule    entities.CaseRule
	AllowHyphen bool
	Length      int
	Answer      string
}

// AttemptRequest describes one (model, prompt) invocation.
type AttemptRequest struct {
	RaceID     string
	RoundID    string
	ClueID     string
	GuessIndex int

	Spec   entities.ModelSpec
	Prompt string

	MaxTokens int
	TimeoutMs int64

	Rules *ClueRules
}

// Progress receives live updates while an attempt is in flight. Reasoning
// callbacks deliver the cumulative reasoning text seen so far; the event
// sink diffs it down to suffixes. Any field may be nil.
type Progress struct {
	OnStart     func(modelID string, guessIndex int)
	OnReasoning func(modelID string, guessIndex int, cumulative string)
}

// Runner drives single attempts through an adapter, applying the timeout
// and populating the full attempt record. Run never returns an error:
// provider failures, timeouts and cancellations all land in the record's
// error kind, so upstream code never distinguishes "the call blew up" from
// "the call succeeded with wrong output".
type Runner struct {
	adapter infrastructure.StreamingAdapter
}

// NewRunner creates a runner on top of the given adapter.
func NewRunner(adapter infrastructure.StreamingAdapter) *Runner {
	return &Runner{adapter: adapter}
}

// Run executes one attempt to completion, timeout, or cancellation.
func (r *Runner) Run(ctx context.Context, req AttemptRequest, progress *Progress) entities.Attempt {
	attempt := entities.Attempt{
		RaceID:  req.RaceID,
		RoundID: req.RoundID,
		ClueID:  req.ClueID,
		ModelID: req.Spec.ID,
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if req.TimeoutMs > 0 {
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	if progress != nil && progress.OnStart != nil {
		progress.OnStart(req.Spec.ID, req.GuessIndex)
	}

	var text strings.Builder
	var reasoning strings.Builder
	attempt.TRequest = time.Now()

	err := r.adapter.Stream(callCtx, req.Spec, req.Prompt, infrastructure.StreamOptions{
		MaxOutputTokens: req.MaxTokens,
	}, func(d infrastructure.Delta) {
		switch d.Kind {
		case infrastructure.DeltaText:
			if attempt.TFirst.IsZero() {
				attempt.TFirst = time.Now()
			}
			text.WriteString(d.Text)
		case infrastructure.DeltaReasoning:
			reasoning.WriteString(d.Text)
			if progress != nil && progress.OnReasoning != nil {
				progress.OnReasoning(req.Spec.ID, req.GuessIndex, reasoning.String())
			}
		case infrastructure.DeltaUsage:
			if d.Usage != nil {
				usage := *d.Usage
				attempt.TokenUsage = &usage
			}
		}
	})

	attempt.TLast = time.Now()
	attempt.Output = text.String()
	attempt.FinalizeTimings()

	if err != nil {
		kind, msg := infrastructure.ClassifyStreamError(callCtx, err)
		attempt.ErrorKind = kind
		attempt.ErrorMsg = msg
		log.WithFields(log.Fields{
			"model_id": req.Spec.ID,
			"clue_id":  req.ClueID,
			"error":    kind,
			"partial":  len(attempt.Output),
		}).Warn("Attempt ended abnormally")
		return attempt
	}

	if req.Rules != nil {
		normalized, formatOK := services.ValidateFormat(
			attempt.Output, req.Rules.OutputRule, req.Rules.CaseRule, req.Rules.AllowHyphen, req.Rules.Length)
		attempt.Normalized = normalized
		attempt.FormatOK = formatOK
		if formatOK {
			attempt.Correct = services.CheckCorrectness(normalized, req.Rules.Answer, req.Rules.CaseRule)
		}
	}
	return attempt
}
