package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"wordrace/domain/entities"
)

// DeltaKind discriminates the variants of a streamed delta.
type DeltaKind string

const (
	DeltaReasoning DeltaKind = "reasoning"
	DeltaText      DeltaKind = "text"
	DeltaUsage     DeltaKind = "usage"
)

// Delta is one element of an adapter's output stream. Exactly one variant
// is populated: Text for reasoning/text kinds, Usage for the usage kind.
type Delta struct {
	Kind  DeltaKind
	Text  string
	Usage *entities.TokenUsage
}

// StreamOptions are the per-invocation knobs the core passes alongside the
// ModelSpec. The deadline travels on the context.
type StreamOptions struct {
	MaxOutputTokens int
}

// DeltaFunc receives stream deltas in arrival order.
type DeltaFunc func(Delta)

// StreamingAdapter is the capability contract every model provider
// implements. Stream invokes the model with the prompt and calls emit for
// each delta as it arrives; concatenating the text deltas in order yields
// the final model output. Usage appears at most once, typically last.
//
// Stream returns nil on normal completion and an error on abnormal
// termination. Text that arrived before the failure has already been
// surfaced through emit; implementations recover partial text from provider
// error shapes where they can. Cancellation via ctx must stop delta
// production promptly.
type StreamingAdapter interface {
	Stream(ctx context.Context, spec entities.ModelSpec, prompt string, opts StreamOptions, emit DeltaFunc) error
}

// AdapterError carries the provider-level failure classification.
type AdapterError struct {
	Kind    entities.ErrorKind
	Message string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.Kind, e.Message)
}

// ClassifyStreamError maps a Stream error onto the attempt error taxonomy.
// Context expiry is a timeout, context cancellation is a session-level
// cancel, anything else is an adapter failure.
func ClassifyStreamError(ctx context.Context, err error) (entities.ErrorKind, string) {
	if err == nil {
		return entities.ErrorNone, ""
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind, ae.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.ErrorTimeout, err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return entities.ErrorCancelled, err.Error()
	}
	// The context may have expired while the adapter was blocked on a
	// read; the wrapped transport error then hides the real cause.
	if ctx != nil {
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return entities.ErrorTimeout, err.Error()
		case context.Canceled:
			return entities.ErrorCancelled, err.Error()
		}
	}
	return entities.ErrorAdapterFailure, err.Error()
}
