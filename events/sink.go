package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// defaultSinkBuffer bounds how far the engine may run ahead of a slow
// consumer before events start being dropped.
const defaultSinkBuffer = 256

type reasoningKey struct {
	modelID    string
	guessIndex int
}

// Sink is the single serial funnel between the race engine and the client
// transport. The engine is the only producer, the transport the only
// consumer, so channel FIFO order is the stream order. Sends are
// best-effort: when the consumer is gone or too far behind, events are
// dropped rather than blocking the race.
type Sink struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool

	// lastReasoning remembers the cumulative reasoning text already sent
	// per (model, guess) so only the new suffix is forwarded.
	lastReasoning map[reasoningKey]string
}

// NewSink creates a sink with the default buffer.
func NewSink() *Sink {
	return &Sink{
		ch:            make(chan Event, defaultSinkBuffer),
		lastReasoning: make(map[reasoningKey]string),
	}
}

// Events returns the consumer side of the sink.
func (s *Sink) Events() <-chan Event {
	return s.ch
}

// Emit enqueues an event for the consumer. Reasoning deltas carry the
// cumulative text seen so far; Emit rewrites them to the suffix since the
// previous chunk for the same (model_id, guess_index) and suppresses empty
// suffixes entirely. The attempt or guess event that ends an attempt resets
// its diff state so the next attempt on the same key starts fresh.
func (s *Sink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch ev := e.(type) {
	case ReasoningDeltaEvent:
		key := reasoningKey{modelID: ev.ModelID, guessIndex: ev.GuessIndex}
		prev := s.lastReasoning[key]
		if len(ev.Delta) <= len(prev) {
			return
		}
		s.lastReasoning[key] = ev.Delta
		ev.Delta = ev.Delta[len(prev):]
		e = ev
	case AttemptEvent:
		delete(s.lastReasoning, reasoningKey{modelID: ev.Attempt.ModelID})
	case GuessEvent:
		delete(s.lastReasoning, reasoningKey{modelID: ev.Guess.ModelID, guessIndex: ev.Guess.GuessIndex})
	}

	select {
	case s.ch <- e:
	default:
		log.WithField("event_type", e.Type()).Warn("Event sink buffer full, dropping event")
	}
}

// Close ends the stream. Idempotent; events emitted after Close are
// discarded.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
