package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wordrace/application"
	"wordrace/config"
	"wordrace/domain/entities"
	"wordrace/events"
	"wordrace/words"
)

// ModelRef is a model entry in a race submission: either a bare id string
// resolved against the registry, or a full inline ModelSpec.
type ModelRef struct {
	ID   string
	Spec *entities.ModelSpec
}

// UnmarshalJSON accepts `"gpt-4o-mini"` or a ModelSpec object.
func (m *ModelRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.ID)
	}
	var spec entities.ModelSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	m.Spec = &spec
	return nil
}

// crosswordRequest is the POST /api/race/stream body.
type crosswordRequest struct {
	Name   string           `json:"name"`
	Models []ModelRef       `json:"models"`
	Rounds []entities.Round `json:"rounds"`
}

// wordleRequest is the POST /api/wordle/stream body.
type wordleRequest struct {
	Name        string     `json:"name"`
	Models      []ModelRef `json:"models"`
	TargetWord  string     `json:"target_word"`
	IncludeUser bool       `json:"include_user"`
}

// resolveModels expands model refs into full specs, applying the public
// model cap.
func (s *Server) resolveModels(refs []ModelRef) ([]entities.ModelSpec, error) {
	cfg := config.Get()
	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}
	if !cfg.UnrestrictedMode && len(refs) > cfg.PublicMaxModels {
		return nil, fmt.Errorf("at most %d models per race, got %d", cfg.PublicMaxModels, len(refs))
	}

	specs := make([]entities.ModelSpec, 0, len(refs))
	for _, ref := range refs {
		if ref.Spec != nil {
			specs = append(specs, *ref.Spec)
			continue
		}
		spec, err := s.registry.Resolve(ref.ID)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := entities.ValidateModelSpecs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// handleCrosswordStream validates a crossword submission, then runs the
// race with the event feed streamed back as SSE.
func (s *Server) handleCrosswordStream(w http.ResponseWriter, r *http.Request) {
	var req crosswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, fmt.Errorf("malformed body: %w", err))
		return
	}

	specs, err := s.resolveModels(req.Models)
	if err != nil {
		writeInvalidRequest(w, err)
		return
	}

	cfg := entities.RaceConfig{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Models:    specs,
		Rounds:    req.Rounds,
		CreatedAt: time.Now(),
	}
	if err := cfg.Validate(); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	log.WithFields(log.Fields{
		"race_id": cfg.ID,
		"models":  len(cfg.Models),
		"rounds":  len(cfg.Rounds),
	}).Info("Crossword race accepted")

	sink := events.NewSink()
	engine := application.NewCrosswordEngine(cfg, application.NewRunner(s.adapter), sink)
	go engine.Run(r.Context())

	streamEvents(w, r, sink.Events())
}

// handleWordleStream validates a wordle submission, then runs the race
// with the event feed streamed back as SSE. The target word is withheld
// from the config event unless the caller asked to play along.
func (s *Server) handleWordleStream(w http.ResponseWriter, r *http.Request) {
	var req wordleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, fmt.Errorf("malformed body: %w", err))
		return
	}

	specs, err := s.resolveModels(req.Models)
	if err != nil {
		writeInvalidRequest(w, err)
		return
	}

	target := req.TargetWord
	if target == "" {
		target = words.RandomAnswer()
	}
	puzzle, err := entities.NewWordlePuzzle(target)
	if err != nil {
		writeInvalidRequest(w, err)
		return
	}

	cfg := entities.WordleConfig{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Models:     specs,
		WordLength: puzzle.WordLength,
		MaxGuesses: puzzle.MaxGuesses,
		CreatedAt:  time.Now(),
	}
	if req.IncludeUser {
		cfg.TargetWord = puzzle.TargetWord
	}

	log.WithFields(log.Fields{
		"race_id": cfg.ID,
		"models":  len(cfg.Models),
	}).Info("Wordle race accepted")

	sink := events.NewSink()
	engine := application.NewWordleEngine(cfg, puzzle, application.NewRunner(s.adapter), sink)
	untrack := s.trackRace(cfg.ID, engine.EndEarly)
	defer untrack()
	go engine.Run(r.Context())

	streamEvents(w, r, sink.Events())
}

// handleEndEarly terminates a running wordle race. The race's own stream
// delivers the final results.
func (s *Server) handleEndEarly(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")

	s.mu.Lock()
	endEarly, ok := s.active[raceID]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "details": "no running race with that id"})
		return
	}

	log.WithField("race_id", raceID).Info("End-early requested")
	endEarly()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleListModels returns the registry's specs so id-only submissions can
// discover what is available.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.registry.List()})
}
