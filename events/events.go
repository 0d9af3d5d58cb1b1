package events

import (
	"encoding/json"

	"wordrace/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeConfig         EventType = "config"
	EventTypeState          EventType = "state"
	EventTypeModelStart     EventType = "model_start"
	EventTypeReasoningDelta EventType = "reasoning_delta"
	EventTypeAttempt        EventType = "attempt"
	EventTypeClue           EventType = "clue"
	EventTypeRound          EventType = "round"
	EventTypeGuess          EventType = "guess"
	EventTypeModelComplete  EventType = "model_complete"
	EventTypeComplete       EventType = "complete"
	EventTypeError          EventType = "error"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ConfigEvent opens every stream with the accepted race configuration.
type ConfigEvent struct {
	Config any `json:"config"`
}

func (e ConfigEvent) Type() EventType {
	return EventTypeConfig
}

// StateEvent carries the current progress view (RaceState or WordleState).
type StateEvent struct {
	State any `json:"state"`
}

func (e StateEvent) Type() EventType {
	return EventTypeState
}

// ModelStartEvent marks the dispatch of one model attempt.
type ModelStartEvent struct {
	ModelID    string `json:"model_id"`
	GuessIndex int    `json:"guess_index"`
}

func (e ModelStartEvent) Type() EventType {
	return EventTypeModelStart
}

// ReasoningDeltaEvent streams a chunk of side-channel thinking text. The
// sink diffs consecutive chunks per (model_id, guess_index) so only the
// suffix travels; receivers reconstruct by concatenation.
type ReasoningDeltaEvent struct {
	ModelID    string `json:"model_id"`
	GuessIndex int    `json:"guess_index"`
	Delta      string `json:"delta"`
}

func (e ReasoningDeltaEvent) Type() EventType {
	return EventTypeReasoningDelta
}

// AttemptEvent reports one finished attempt: every crossword attempt, and
// a wordle attempt interrupted by cancellation (completed wordle attempts
// travel inside their guess event).
type AttemptEvent struct {
	Attempt entities.Attempt `json:"attempt"`
}

func (e AttemptEvent) Type() EventType {
	return EventTypeAttempt
}

// ClueEvent bundles all scored attempts of one clue in a single snapshot.
type ClueEvent struct {
	ClueID   string             `json:"clue_id"`
	Attempts []entities.Attempt `json:"attempts"`
}

func (e ClueEvent) Type() EventType {
	return EventTypeClue
}

// RoundEvent reports a completed round with its per-model averages.
type RoundEvent struct {
	RoundResult entities.RoundResult `json:"round_result"`
}

func (e RoundEvent) Type() EventType {
	return EventTypeRound
}

// GuessEvent reports one wordle guess with its feedback.
type GuessEvent struct {
	Guess entities.WordleGuess `json:"guess"`
}

func (e GuessEvent) Type() EventType {
	return EventTypeGuess
}

// ModelCompleteEvent reports one model's finished wordle game.
type ModelCompleteEvent struct {
	ModelID   string                    `json:"model_id"`
	GameState *entities.WordleGameState `json:"game_state"`
}

func (e ModelCompleteEvent) Type() EventType {
	return EventTypeModelComplete
}

// CompleteEvent closes a stream with the final ranked result.
type CompleteEvent struct {
	Result any `json:"result"`
}

func (e CompleteEvent) Type() EventType {
	return EventTypeComplete
}

// ErrorEvent closes a stream on an unrecoverable engine fault.
type ErrorEvent struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e ErrorEvent) Type() EventType {
	return EventTypeError
}

// Terminal reports whether an event ends the stream.
func Terminal(e Event) bool {
	switch e.Type() {
	case EventTypeComplete, EventTypeError:
		return true
	}
	return false
}

// Marshal serializes an event to its wire form: the event's payload fields
// with the type discriminator merged in.
func Marshal(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(e.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}
