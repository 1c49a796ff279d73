// Package scheduler implements a tick-based poll loop. Each tick probes the
// configured targets once, one after another, and hands the results to a
// callback. The scheduler does NOT publish results itself.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/collector"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// Prober runs a list of targets. *collector.Registry satisfies it.
type Prober interface {
	ProbeAll(ctx context.Context, targets []probe.Target) []collector.Result
}

// Scheduler polls a fixed set of targets at an interval.
type Scheduler struct {
	prober   Prober
	targets  []probe.Target
	interval time.Duration
	logger   *zap.Logger

	onResults func([]collector.Result)
}

// New creates a Scheduler that polls targets every interval.
func New(prober Prober, targets []probe.Target, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		prober:   prober,
		targets:  targets,
		interval: interval,
		logger:   logger,
	}
}

// OnResults sets the callback invoked after every poll.
func (s *Scheduler) OnResults(fn func([]collector.Result)) {
	s.onResults = fn
}

// Start polls immediately and then on every tick. It blocks until the
// context is cancelled. A poll still running when the next tick fires
// delays that tick; polls never overlap.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	start := time.Now()
	results := s.prober.ProbeAll(ctx, s.targets)
	if ctx.Err() != nil {
		return
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("Poll finished",
		zap.Int("targets", len(results)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	if s.onResults != nil {
		s.onResults(results)
	}
}
