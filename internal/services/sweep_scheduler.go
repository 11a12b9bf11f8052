package services

import (
	"context"
	"pickup-dispatch-service/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

// SweepScheduler runs the inactivity sweep for residents and collectors on a
// fixed interval until its context ends.
type SweepScheduler struct {
	sweep      *InactivitySweep
	interval   time.Duration
	windowDays int
	log        zerolog.Logger
}

func NewSweepScheduler(sweep *InactivitySweep, interval time.Duration, windowDays int, log zerolog.Logger) *SweepScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &SweepScheduler{sweep: sweep, interval: interval, windowDays: windowDays, log: log}
}

// RunOnce sweeps both roles. An error for one role does not skip the other.
func (s *SweepScheduler) RunOnce(ctx context.Context) []SweepReport {
	reports := make([]SweepReport, 0, 2)
	for _, role := range []domain.Role{domain.RoleResident, domain.RoleCollector} {
		rep, err := s.sweep.Run(ctx, role, s.windowDays)
		if err != nil {
			s.log.Error().Err(err).Str("role", string(role)).Msg("inactivity sweep failed")
		}
		reports = append(reports, rep)
	}
	return reports
}

// Start blocks, sweeping every interval. It returns nil when ctx is done.
func (s *SweepScheduler) Start(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("sweep scheduler started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}
