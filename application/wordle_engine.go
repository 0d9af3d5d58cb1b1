package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wordrace/config"
	"wordrace/domain/entities"
	"wordrace/domain/services"
	"wordrace/events"
)

// WordleEngine coordinates one wordle race: every model plays an
// independent six-turn game in parallel against the same hidden target.
// The engine owns all game state; goroutines mutate only their own model's
// game, and snapshots for the event stream are taken under the state lock.
type WordleEngine struct {
	cfg    entities.WordleConfig
	puzzle entities.WordlePuzzle
	runner *Runner
	sink   *events.Sink

	mu        sync.Mutex
	status    entities.RaceStatus
	startedAt time.Time
	states    map[string]*entities.WordleGameState

	endEarlyOnce sync.Once
	endEarly     chan struct{}
}

// NewWordleEngine creates an engine for a validated config and puzzle.
func NewWordleEngine(cfg entities.WordleConfig, puzzle entities.WordlePuzzle, runner *Runner, sink *events.Sink) *WordleEngine {
	states := make(map[string]*entities.WordleGameState, len(cfg.Models))
	for _, spec := range cfg.Models {
		states[spec.ID] = entities.NewWordleGameState(spec.ID)
	}
	return &WordleEngine{
		cfg:      cfg,
		puzzle:   puzzle,
		runner:   runner,
		sink:     sink,
		status:   entities.RaceStatusPending,
		states:   states,
		endEarly: make(chan struct{}),
	}
}

// EndEarly cancels all in-flight attempts, freezes every unfinished game
// as did-not-finish, and lets Run aggregate whatever has been recorded.
// Idempotent.
func (e *WordleEngine) EndEarly() {
	e.endEarlyOnce.Do(func() {
		log.WithField("race_id", e.cfg.ID).Info("Wordle race ending early")
		close(e.endEarly)
	})
}

// Run drives all games to completion or early termination. The sink is
// closed before returning.
func (e *WordleEngine) Run(ctx context.Context) {
	defer e.sink.Close()

	gameCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.endEarly:
			cancel()
		case <-gameCtx.Done():
		}
	}()

	e.mu.Lock()
	e.status = entities.RaceStatusRunning
	e.startedAt = time.Now()
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"race_id": e.cfg.ID,
		"models":  len(e.cfg.Models),
	}).Info("Wordle race starting")

	e.sink.Emit(events.ConfigEvent{Config: e.cfg})
	e.sink.Emit(events.StateEvent{State: e.snapshotState()})

	g, _ := errgroup.WithContext(gameCtx)
	for _, spec := range e.cfg.Models {
		spec := spec
		g.Go(func() error {
			e.playGame(gameCtx, spec)
			return nil
		})
	}
	_ = g.Wait()

	e.finish()
}

// playGame runs one model's guess loop until solve, fail, or cancellation.
func (e *WordleEngine) playGame(ctx context.Context, spec entities.ModelSpec) {
	cfg := config.Get()

	for {
		e.mu.Lock()
		state := e.states[spec.ID]
		finished := state.Finished()
		prompt := WordlePrompt(state, spec.CustomPromptTemplate)
		guessIndex := len(state.Guesses)
		e.mu.Unlock()
		if finished {
			break
		}

		if ctx.Err() != nil {
			e.freezeGame(spec.ID)
			break
		}

		attempt := e.runner.Run(ctx, AttemptRequest{
			RaceID:     e.cfg.ID,
			GuessIndex: guessIndex,
			Spec:       spec,
			Prompt:     prompt,
			MaxTokens:  cfg.DefaultMaxTokensWordle,
			TimeoutMs:  cfg.DefaultTimeoutMsWordle,
		}, &Progress{
			OnStart: func(modelID string, guessIndex int) {
				e.sink.Emit(events.ModelStartEvent{ModelID: modelID, GuessIndex: guessIndex})
			},
			OnReasoning: func(modelID string, guessIndex int, cumulative string) {
				e.sink.Emit(events.ReasoningDeltaEvent{ModelID: modelID, GuessIndex: guessIndex, Delta: cumulative})
			},
		})

		// Session-level cancellation freezes the game without consuming
		// a turn; a per-attempt timeout still plays the partial text.
		// The interrupted attempt is still recorded, partial text and all.
		if attempt.ErrorKind == entities.ErrorCancelled {
			e.sink.Emit(events.AttemptEvent{Attempt: attempt})
			e.mu.Lock()
			e.states[spec.ID].CancelledAttempt = &attempt
			e.states[spec.ID].Freeze()
			e.mu.Unlock()
			break
		}

		word := ParseGuessWord(attempt.Output)
		feedback := services.Feedback(word, e.puzzle.TargetWord)
		guess := entities.WordleGuess{
			Attempt:    attempt,
			Word:       word,
			Feedback:   feedback,
			GuessIndex: guessIndex,
		}

		e.mu.Lock()
		err := e.states[spec.ID].AddGuess(guess)
		gameOver := e.states[spec.ID].Finished()
		e.mu.Unlock()
		if err != nil {
			log.WithError(err).WithField("model_id", spec.ID).Error("Rejected wordle guess")
			break
		}

		e.sink.Emit(events.GuessEvent{Guess: guess})
		e.sink.Emit(events.StateEvent{State: e.snapshotState()})

		if gameOver {
			break
		}
	}

	e.mu.Lock()
	final := cloneGameState(e.states[spec.ID])
	e.mu.Unlock()
	e.sink.Emit(events.ModelCompleteEvent{ModelID: spec.ID, GameState: final})

	log.WithFields(log.Fields{
		"race_id":  e.cfg.ID,
		"model_id": spec.ID,
		"solved":   final.Solved,
		"guesses":  len(final.Guesses),
	}).Info("Wordle game finished")
}

// freezeGame marks a model's unfinished game as did-not-finish.
func (e *WordleEngine) freezeGame(modelID string) {
	e.mu.Lock()
	e.states[modelID].Freeze()
	e.mu.Unlock()
}

// finish ranks all games and emits the terminal complete event. Winner is
// the top-ranked solver, or empty when nobody solved.
func (e *WordleEngine) finish() {
	e.mu.Lock()
	var results []entities.WordleModelResult
	for _, spec := range e.cfg.Models {
		results = append(results, services.BuildWordleResult(e.states[spec.ID], spec.Name))
	}
	startedAt := e.startedAt
	e.status = entities.RaceStatusCompleted
	e.mu.Unlock()

	ranked := services.RankWordleResults(results)
	winner := ""
	if len(ranked) > 0 && ranked[0].Solved {
		winner = ranked[0].ModelID
	}

	completedAt := time.Now()
	result := entities.WordleRaceResult{
		RaceID:      e.cfg.ID,
		Name:        e.cfg.Name,
		TargetWord:  e.puzzle.TargetWord,
		Winner:      winner,
		Results:     ranked,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}

	log.WithFields(log.Fields{
		"race_id": e.cfg.ID,
		"winner":  winner,
	}).Info("Wordle race completed")

	e.sink.Emit(events.StateEvent{State: e.snapshotState()})
	e.sink.Emit(events.CompleteEvent{Result: result})
}

// snapshotState builds a WordleState copy safe to hand to the sink.
func (e *WordleEngine) snapshotState() entities.WordleState {
	e.mu.Lock()
	defer e.mu.Unlock()

	modelStates := make(map[string]*entities.WordleGameState, len(e.states))
	for id, state := range e.states {
		modelStates[id] = cloneGameState(state)
	}
	snap := entities.WordleState{
		Status:      e.status,
		ModelStates: modelStates,
	}
	if !e.startedAt.IsZero() {
		started := e.startedAt
		snap.StartedAt = &started
	}
	if e.status == entities.RaceStatusCompleted {
		completed := time.Now()
		snap.CompletedAt = &completed
	}
	return snap
}

// cloneGameState copies a game state including its guess slice.
func cloneGameState(state *entities.WordleGameState) *entities.WordleGameState {
	clone := *state
	clone.Guesses = make([]entities.WordleGuess, len(state.Guesses))
	copy(clone.Guesses, state.Guesses)
	return &clone
}
