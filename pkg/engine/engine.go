// Package engine orchestrates practice sessions: lifecycle transitions, the
// speech-to-speech turn pipeline, and background cleanup. The engine owns all
// session state mutation; HTTP handlers only translate requests into engine
// calls.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunavoice/luna/pkg/core/asr"
	"github.com/lunavoice/luna/pkg/core/llm"
	"github.com/lunavoice/luna/pkg/core/tts"
	"github.com/lunavoice/luna/pkg/core/types"
	"github.com/lunavoice/luna/pkg/engine/store"
)

const (
	// DefaultIdleTimeout is how long a session may sit without activity
	// before the sweeper purges it.
	DefaultIdleTimeout = time.Hour

	// DefaultSweepPeriod is the interval between sweeper passes.
	DefaultSweepPeriod = 10 * time.Minute
)

// Config tunes engine behavior. Zero values fall back to defaults.
type Config struct {
	MaxTurnPairs int
	IdleTimeout  time.Duration
	SweepPeriod  time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTurnPairs <= 0 {
		c.MaxTurnPairs = types.MaxTurnPairs
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.SweepPeriod <= 0 {
		c.SweepPeriod = DefaultSweepPeriod
	}
}

// HistorySink receives the record of each finalized session.
type HistorySink interface {
	SaveRecord(ctx context.Context, record *types.SessionRecord) error
}

// ArtifactStore persists synthesized reply audio and reclaims it when a
// session is purged.
type ArtifactStore interface {
	Store(sessionID string, turnIndex int, audio []byte) (string, error)
	Purge(sessionID string) int
}

// Metrics receives engine-level counters. Implementations must be
// concurrency-safe; a nil Metrics disables instrumentation.
type Metrics interface {
	SessionStarted()
	SessionRemoved()
	TurnProcessed(outcome string, elapsed time.Duration)
	SessionsPurged(count int)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()                     {}
func (nopMetrics) SessionRemoved()                     {}
func (nopMetrics) TurnProcessed(string, time.Duration) {}
func (nopMetrics) SessionsPurged(int)                  {}

// Deps are the engine's collaborators.
type Deps struct {
	Store     *store.Store
	Artifacts ArtifactStore
	ASR       asr.Provider
	LLM       llm.Provider
	TTS       tts.Provider
	History   HistorySink
	Metrics   Metrics
	Logger    *slog.Logger
}

// Engine coordinates session state and the turn pipeline.
type Engine struct {
	cfg       Config
	store     *store.Store
	artifacts ArtifactStore
	asr       asr.Provider
	llm       llm.Provider
	tts       tts.Provider
	history   HistorySink
	metrics   Metrics
	events    *Broker
	logger    *slog.Logger
	now       func() time.Time
}

// New wires an engine from its collaborators.
func New(cfg Config, deps Deps) (*Engine, error) {
	cfg.applyDefaults()
	if deps.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("engine: artifact manager is required")
	}
	if deps.ASR == nil || deps.LLM == nil || deps.TTS == nil {
		return nil, fmt.Errorf("engine: asr, llm and tts providers are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics Metrics = deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Engine{
		cfg:       cfg,
		store:     deps.Store,
		artifacts: deps.Artifacts,
		asr:       deps.ASR,
		llm:       deps.LLM,
		tts:       deps.TTS,
		history:   deps.History,
		metrics:   metrics,
		events:    NewBroker(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Events exposes the per-session event broker for streaming subscribers.
func (e *Engine) Events() *Broker {
	return e.events
}

// Session returns a snapshot of a live session.
func (e *Engine) Session(id string) (*types.Session, error) {
	return e.store.Get(id)
}

// ActiveSessions returns the number of live sessions.
func (e *Engine) ActiveSessions() int {
	return e.store.Len()
}

// synthesizeReply runs TTS and artifact storage for one reply. It never
// fails the turn: a synthesis or storage problem degrades to a text-only
// reply with no audio reference.
func (e *Engine) synthesizeReply(ctx context.Context, sess *types.Session, text string, turnIndex int) (audioRef string, unavailable bool) {
	audio, err := e.tts.Synthesize(ctx, text, sess.Settings.TargetLanguage, sess.Settings.SpeechRate)
	if err != nil {
		e.logger.Warn("tts synthesis failed, continuing without audio",
			"session_id", sess.ID, "turn_index", turnIndex, "error", err)
		return "", true
	}
	if len(audio) == 0 {
		return "", true
	}
	ref, err := e.artifacts.Store(sess.ID, turnIndex, audio)
	if err != nil {
		e.logger.Warn("audio artifact write failed, continuing without audio",
			"session_id", sess.ID, "turn_index", turnIndex, "error", err)
		return "", true
	}
	return ref, false
}
