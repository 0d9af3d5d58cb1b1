package entities

import (
	"fmt"
	"time"
)

// ErrorKind classifies why an attempt failed. An unset kind means the
// invocation itself succeeded, even if the output was wrong.
type ErrorKind string

const (
	ErrorNone           ErrorKind = ""
	ErrorTimeout        ErrorKind = "timeout"
	ErrorAdapterFailure ErrorKind = "adapter_failure"
	ErrorCancelled      ErrorKind = "cancelled"
)

// TokenUsage is the prompt/completion/total token triple reported by an
// adapter, when available.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Attempt is the full record of one model's one response to one prompt:
// timings, raw and normalized output, validation flags and score.
//
// Timestamps are captured from the monotonic clock; only the derived
// millisecond durations go over the wire. Invariants:
// t_request <= t_first <= t_last; if error is set then format_ok and correct
// are false and clue_score is zero.
type Attempt struct {
	RaceID  string `json:"race_id,omitempty"`
	RoundID string `json:"round_id,omitempty"`
	ClueID  string `json:"clue_id,omitempty"`
	ModelID string `json:"model_id"`

	TRequest time.Time `json:"-"`
	TFirst   time.Time `json:"-"`
	TLast    time.Time `json:"-"`

	E2EMs  int64  `json:"e2e_ms"`
	TTFTMs *int64 `json:"ttft_ms,omitempty"`

	Output     string `json:"output"`
	Normalized string `json:"normalized"`
	FormatOK   bool   `json:"format_ok"`
	Correct    bool   `json:"correct"`

	ClueScore float64 `json:"clue_score"`

	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	ErrorKind  ErrorKind   `json:"error,omitempty"`
	ErrorMsg   string      `json:"error_message,omitempty"`
}

// FinalizeTimings derives e2e_ms and ttft_ms from the recorded timestamps.
// TTFT stays unset when no text delta ever arrived.
func (a *Attempt) FinalizeTimings() {
	if !a.TRequest.IsZero() && !a.TLast.IsZero() {
		a.E2EMs = a.TLast.Sub(a.TRequest).Milliseconds()
		if a.E2EMs < 0 {
			a.E2EMs = 0
		}
	}
	if !a.TFirst.IsZero() {
		ttft := a.TFirst.Sub(a.TRequest).Milliseconds()
		if ttft < 0 {
			ttft = 0
		}
		a.TTFTMs = &ttft
	}
}

// Failed reports whether this attempt carries an error kind.
func (a *Attempt) Failed() bool {
	return a.ErrorKind != ErrorNone
}

// CheckInvariants verifies the attempt's timestamp and error-state
// invariants. Violations indicate an engine bug, not bad model output.
func (a *Attempt) CheckInvariants() error {
	if !a.TFirst.IsZero() && a.TFirst.Before(a.TRequest) {
		return fmt.Errorf("attempt %s/%s: t_first precedes t_request", a.ModelID, a.ClueID)
	}
	if !a.TLast.IsZero() && !a.TFirst.IsZero() && a.TLast.Before(a.TFirst) {
		return fmt.Errorf("attempt %s/%s: t_last precedes t_first", a.ModelID, a.ClueID)
	}
	if a.Failed() && (a.FormatOK || a.Correct || a.ClueScore != 0) {
		return fmt.Errorf("attempt %s/%s: error %q must force format_ok=correct=false and zero score",
			a.ModelID, a.ClueID, a.ErrorKind)
	}
	return nil
}
