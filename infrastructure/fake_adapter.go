package infrastructure

import (
	"context"
	"sync"
	"time"

	"wordrace/domain/entities"
)

// FakeScript describes what a FakeAdapter plays back for one invocation.
type FakeScript struct {
	// Deltas are emitted in order, each after its Delay.
	Deltas []FakeDelta
	// Err terminates the stream after the deltas; nil means normal end.
	Err error
	// Hang keeps the stream open after the deltas until the context
	// expires, simulating a stalled provider.
	Hang bool
}

// FakeDelta is one scripted delta with its emission delay.
type FakeDelta struct {
	Delay time.Duration
	Delta Delta
}

// FakeAdapter replays scripted delta sequences per model id. It is the
// test double engine and runner tests drive; a model id without a script
// falls back to DefaultScript.
type FakeAdapter struct {
	mu            sync.Mutex
	scripts       map[string][]FakeScript
	callCounts    map[string]int
	DefaultScript FakeScript
}

// NewFakeAdapter creates an empty fake adapter.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		scripts:    make(map[string][]FakeScript),
		callCounts: make(map[string]int),
	}
}

// ScriptText enqueues a plain single-text-delta script for a model.
func (f *FakeAdapter) ScriptText(modelID, text string, delay time.Duration) {
	f.Enqueue(modelID, FakeScript{
		Deltas: []FakeDelta{{Delay: delay, Delta: Delta{Kind: DeltaText, Text: text}}},
	})
}

// Enqueue appends a script to a model's playback queue. Successive calls
// for the same model answer successive invocations; the last script repeats
// once the queue is drained.
func (f *FakeAdapter) Enqueue(modelID string, script FakeScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[modelID] = append(f.scripts[modelID], script)
}

// Calls reports how many times a model was invoked.
func (f *FakeAdapter) Calls(modelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCounts[modelID]
}

// Stream implements StreamingAdapter by playing back the scripted deltas.
func (f *FakeAdapter) Stream(ctx context.Context, spec entities.ModelSpec, prompt string, opts StreamOptions, emit DeltaFunc) error {
	script := f.nextScript(spec.ID)

	for _, d := range script.Deltas {
		if d.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.Delay):
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		emit(d.Delta)
	}
	if script.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return script.Err
}

func (f *FakeAdapter) nextScript(modelID string) FakeScript {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCounts[modelID]++
	queue := f.scripts[modelID]
	if len(queue) == 0 {
		return f.DefaultScript
	}
	script := queue[0]
	if len(queue) > 1 {
		f.scripts[modelID] = queue[1:]
	}
	return script
}
