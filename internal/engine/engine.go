// Package engine implements the email-campaign experimentation core:
// weighted traffic allocation across variants, engagement tracking, winner
// evaluation via a two-proportion z-test, auto-promotion of winners, and
// point-in-time performance snapshots.
package engine

import (
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/splitsend/splitsend/internal/store"
)

type Engine struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	randFn func() float64

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

type Option func(*Engine)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the uniform [0,1) source used by variant selection.
func WithRand(fn func() float64) Option {
	return func(e *Engine) { e.randFn = fn }
}

func New(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		store:  s,
		logger: logger,
		now:    time.Now,
		randFn: rand.Float64,
		locks:  map[int64]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// testLock returns the mutex serializing winner evaluation and promotion for
// one test. Counter increments don't take it; they are atomic at the store.
func (e *Engine) testLock(testID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[testID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[testID] = lock
	}
	return lock
}

// releaseTestLock drops a test's lock entry once the test reaches a terminal
// status, so the map does not grow for the lifetime of a long-running server.
// A later caller may receive a fresh mutex while an in-flight holder still
// owns the old one; that is safe because the conditional status update, not
// the lock, is what rejects transitions on terminal tests.
func (e *Engine) releaseTestLock(testID int64) {
	e.mu.Lock()
	delete(e.locks, testID)
	e.mu.Unlock()
}
