package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wordrace/config"
	"wordrace/domain/entities"
	"wordrace/domain/services"
	"wordrace/events"
)

// CrosswordEngine coordinates one crossword race: clues run strictly in
// sequence, models fan out in parallel within each clue, and every
// lifecycle step is emitted through the sink. The engine exclusively owns
// the race state; events are built from snapshots before they are enqueued.
type CrosswordEngine struct {
	cfg    entities.RaceConfig
	runner *Runner
	sink   *events.Sink

	state           entities.RaceState
	startedAt       time.Time
	attemptsByModel map[string][]entities.Attempt
	roundResults    []entities.RoundResult
}

// NewCrosswordEngine creates an engine for a validated config.
func NewCrosswordEngine(cfg entities.RaceConfig, runner *Runner, sink *events.Sink) *CrosswordEngine {
	return &CrosswordEngine{
		cfg:    cfg,
		runner: runner,
		sink:   sink,
		state: entities.RaceState{
			Status:     entities.RaceStatusPending,
			TotalClues: cfg.TotalClues(),
		},
		attemptsByModel: make(map[string][]entities.Attempt),
	}
}

// Run drives the race to completion. The sink is closed before returning;
// the terminal event is complete, or error on an engine fault.
func (e *CrosswordEngine) Run(ctx context.Context) {
	defer e.sink.Close()

	if err := e.start(); err != nil {
		e.fail(err)
		return
	}

	for _, round := range e.cfg.Rounds {
		if ctx.Err() != nil {
			break
		}
		if err := e.runRound(ctx, round); err != nil {
			e.fail(err)
			return
		}
	}

	e.finish()
}

func (e *CrosswordEngine) start() error {
	if err := e.state.Advance(entities.RaceStatusRunning); err != nil {
		return err
	}
	e.startedAt = time.Now()
	wallStart := e.startedAt
	e.state.StartedAt = &wallStart

	log.WithFields(log.Fields{
		"race_id":     e.cfg.ID,
		"models":      len(e.cfg.Models),
		"total_clues": e.state.TotalClues,
	}).Info("Crossword race starting")

	e.sink.Emit(events.ConfigEvent{Config: e.cfg})
	e.sink.Emit(events.StateEvent{State: e.state})
	return nil
}

// runRound executes every clue of a round in order, then emits the round
// summary.
func (e *CrosswordEngine) runRound(ctx context.Context, round entities.Round) error {
	e.state.CurrentRoundID = round.ID
	roundResult := entities.RoundResult{RoundID: round.ID}
	roundAttempts := make(map[string][]entities.Attempt)

	for _, clue := range round.Clues {
		if ctx.Err() != nil {
			break
		}
		scored, err := e.runClue(ctx, round, clue)
		if err != nil {
			return err
		}
		roundResult.ClueResults = append(roundResult.ClueResults, entities.ClueResult{
			ClueID:   clue.ID,
			Answer:   clue.Answer,
			Attempts: scored,
		})
		for _, a := range scored {
			roundAttempts[a.ModelID] = append(roundAttempts[a.ModelID], a)
			e.attemptsByModel[a.ModelID] = append(e.attemptsByModel[a.ModelID], a)
		}

		e.state.BumpProgress()
		e.sink.Emit(events.StateEvent{State: e.state})
	}

	for _, spec := range e.cfg.Models {
		roundResult.ModelScores = append(roundResult.ModelScores,
			services.BuildModelScore(spec.ID, spec.Name, roundAttempts[spec.ID]))
	}
	e.roundResults = append(e.roundResults, roundResult)
	e.sink.Emit(events.RoundEvent{RoundResult: roundResult})
	return nil
}

// runClue fans one clue out across all models, waits for every attempt,
// scores the set, and emits the composite clue event.
func (e *CrosswordEngine) runClue(ctx context.Context, round entities.Round, clue entities.Clue) ([]entities.Attempt, error) {
	e.state.CurrentClueID = clue.ID
	cfg := config.Get()

	prompt := CrosswordPrompt(clue, round.EffectiveOutputRule())
	rules := &ClueRules{
		OutputRule:  round.EffectiveOutputRule(),
		CaseRule:    clue.EffectiveCaseRule(),
		AllowHyphen: clue.AllowHyphen,
		Length:      clue.Length,
		Answer:      clue.Answer,
	}

	maxTokens := round.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.DefaultMaxTokensCrossword
	}
	timeoutMs := round.TimeLimitMs
	if timeoutMs == 0 {
		timeoutMs = cfg.DefaultTimeoutMsCrossword
	}

	results := make([]entities.Attempt, len(e.cfg.Models))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range e.cfg.Models {
		i, spec := i, spec
		g.Go(func() error {
			attempt := e.runner.Run(gctx, AttemptRequest{
				RaceID:    e.cfg.ID,
				RoundID:   round.ID,
				ClueID:    clue.ID,
				Spec:      spec,
				Prompt:    prompt,
				MaxTokens: maxTokens,
				TimeoutMs: timeoutMs,
				Rules:     rules,
			}, &Progress{
				OnStart: func(modelID string, guessIndex int) {
					e.sink.Emit(events.ModelStartEvent{ModelID: modelID, GuessIndex: guessIndex})
				},
				OnReasoning: func(modelID string, guessIndex int, cumulative string) {
					e.sink.Emit(events.ReasoningDeltaEvent{ModelID: modelID, GuessIndex: guessIndex, Delta: cumulative})
				},
			})
			e.sink.Emit(events.AttemptEvent{Attempt: attempt})
			results[i] = attempt
			return nil
		})
	}
	// Runner never errors; Wait only synchronizes the fan-out.
	_ = g.Wait()

	scored := make([]*entities.Attempt, len(results))
	for i := range results {
		scored[i] = &results[i]
	}
	services.ScoreClue(scored, cfg.SpeedBonusThresholdMs)

	for i := range results {
		if err := results[i].CheckInvariants(); err != nil {
			return nil, fmt.Errorf("clue %s: %w", clue.ID, err)
		}
	}

	e.sink.Emit(events.ClueEvent{ClueID: clue.ID, Attempts: results})
	return results, nil
}

// finish ranks the models over every attempt of the race and emits the
// terminal complete event.
func (e *CrosswordEngine) finish() {
	var scores []entities.ModelScore
	for _, spec := range e.cfg.Models {
		scores = append(scores, services.BuildModelScore(spec.ID, spec.Name, e.attemptsByModel[spec.ID]))
	}
	ranked := services.RankModels(scores)

	completedAt := time.Now()
	if err := e.state.Advance(entities.RaceStatusCompleted); err != nil {
		e.fail(err)
		return
	}
	e.state.CompletedAt = &completedAt
	e.state.CurrentRoundID = ""
	e.state.CurrentClueID = ""

	result := entities.RaceResult{
		RaceID:       e.cfg.ID,
		Name:         e.cfg.Name,
		ModelScores:  ranked,
		RoundResults: e.roundResults,
		StartedAt:    e.startedAt,
		CompletedAt:  completedAt,
	}

	log.WithFields(log.Fields{
		"race_id": e.cfg.ID,
		"models":  len(ranked),
	}).Info("Crossword race completed")

	e.sink.Emit(events.StateEvent{State: e.state})
	e.sink.Emit(events.CompleteEvent{Result: result})
}

// fail transitions to the error status and emits the terminal error event.
func (e *CrosswordEngine) fail(err error) {
	log.WithError(err).WithField("race_id", e.cfg.ID).Error("Crossword race failed")
	e.state.Status = entities.RaceStatusError
	e.sink.Emit(events.StateEvent{State: e.state})
	e.sink.Emit(events.ErrorEvent{Error: "race failed", Details: err.Error()})
}
