// Package engine provides the round-based simulation loop, the phase
// scheduler and the population lifecycle.
package engine

import (
	"errors"
	"log/slog"
	"sync/atomic"
)

// Engine drives the simulation forward one round at a time.
type Engine struct {
	Round int // Next round to run (monotonic, never resets)

	running atomic.Bool
	stop    atomic.Bool

	// OnRound runs one complete round. An error stops the loop.
	OnRound func(round int) error
}

// NewEngine creates a simulation engine starting at round 0.
func NewEngine() *Engine {
	return &Engine{}
}

// Run executes up to rounds rounds. Stop takes effect between rounds; a
// round that has started always runs to completion.
func (e *Engine) Run(rounds int) error {
	if e.OnRound == nil {
		return errors.New("engine has no round callback")
	}
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.running.Store(false)
	e.stop.Store(false)

	slog.Info("simulation engine started", "round", e.Round, "rounds", rounds)
	for i := 0; i < rounds; i++ {
		if e.stop.Load() {
			slog.Info("simulation engine interrupted", "round", e.Round)
			break
		}
		if err := e.OnRound(e.Round); err != nil {
			return err
		}
		e.Round++
	}
	slog.Info("simulation engine stopped", "round", e.Round)
	return nil
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stop asks a running loop to halt before its next round. Safe to call
// from another goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}
