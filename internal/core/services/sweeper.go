package services

import (
	"context"
	"time"

	"streampulse/internal/core/ports"

	"go.uber.org/zap"
)

// Sweeper periodically repairs asymmetric follow edges. Follow toggles are
// atomic per call, but pending follows and edges written by older clients can
// leave one side missing; the sweep restores the invariant.
type Sweeper struct {
	profiles ports.ProfileRepository
	interval time.Duration
	gate     SweepGate
	logger   *zap.SugaredLogger
	quit     chan struct{}
	done     chan struct{}
}

// SweepGate serializes sweeps across instances: a sweep runs only while the
// gate is held. A nil gate means single-instance deployment.
type SweepGate interface {
	Acquire(ctx context.Context) (release func(), acquired bool, err error)
}

func NewSweeper(profiles ports.ProfileRepository, interval time.Duration, gate SweepGate, logger *zap.SugaredLogger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		profiles: profiles,
		interval: interval,
		gate:     gate,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweeper in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the sweeper to exit.
func (s *Sweeper) Stop() {
	close(s.quit)
}

// Done is closed once the sweeper has fully stopped.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.gate != nil {
		release, acquired, err := s.gate.Acquire(ctx)
		if err != nil {
			s.logger.Warnw("failed to acquire sweep lock", "error", err)
			return
		}
		if !acquired {
			// Another instance is sweeping.
			return
		}
		defer release()
	}

	repaired, err := s.profiles.RepairFollows(ctx)
	if err != nil {
		s.logger.Errorw("follow repair sweep failed", "error", err)
		return
	}
	if repaired > 0 {
		s.logger.Infow("repaired asymmetric follow edges", "count", repaired)
	}
}
