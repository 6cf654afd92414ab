// Package assistant implements the studio's consultation and design
// operations on top of the database, cache, worker pool and backend.
package assistant

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"aminestudio/internal/gemini"
	"aminestudio/internal/redis"
	"aminestudio/internal/worker"
)

// Generator is the slice of the backend client the service depends on.
type Generator interface {
	Generate(ctx context.Context, p gemini.Payload) (*gemini.Reply, error)
	Configured() bool
}

// ErrSessionBusy is returned when a consultation already has a
// generation in flight. The caller drops the request; nothing queues.
var ErrSessionBusy = errors.New("assistant: session busy")

// Options tunes conversation behavior.
type Options struct {
	HistoryWindow  int
	ThinkingBudget int
	RetryPolicy    gemini.RetryPolicy
}

// Service exposes all assistant operations.
type Service struct {
	db      *sql.DB
	ai      Generator
	cache   *redis.Client
	runtime *worker.Manager
	logger  *zap.Logger

	historyWindow  int
	thinkingBudget int
	policy         gemini.RetryPolicy
}

// NewService wires the assistant. cache may be nil; the studio then
// runs without artifact caching.
func NewService(db *sql.DB, ai Generator, cache *redis.Client, runtime *worker.Manager, opts Options, logger *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("db handle is required")
	}
	if ai == nil {
		return nil, errors.New("generator is required")
	}
	if runtime == nil {
		return nil, errors.New("worker manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}
	if opts.ThinkingBudget <= 0 {
		opts.ThinkingBudget = 4000
	}
	if opts.RetryPolicy.MaxAttempts <= 0 {
		opts.RetryPolicy = gemini.DefaultRetryPolicy()
	}
	return &Service{
		db:             db,
		ai:             ai,
		cache:          cache,
		runtime:        runtime,
		logger:         logger,
		historyWindow:  opts.HistoryWindow,
		thinkingBudget: opts.ThinkingBudget,
		policy:         opts.RetryPolicy,
	}, nil
}

// Ready reports whether generation is possible at all.
func (s *Service) Ready() bool { return s.ai.Configured() }

// generate runs one backend call under the retry policy.
func (s *Service) generate(ctx context.Context, p gemini.Payload) (*gemini.Reply, error) {
	return gemini.Do(ctx, s.policy, s.logger, func() (*gemini.Reply, error) {
		return s.ai.Generate(ctx, p)
	})
}
