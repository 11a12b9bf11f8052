package services

import (
	"context"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInactivityWindowDays is the trailing window used when none is given.
const DefaultInactivityWindowDays = 7

type InactivitySweep struct {
	repo     ports.ActivityRepository
	notifier ports.Notifier
	metrics  *obs.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewInactivitySweep(repo ports.ActivityRepository, notifier ports.Notifier, metrics *obs.Metrics, log zerolog.Logger) *InactivitySweep {
	return &InactivitySweep{repo: repo, notifier: notifier, metrics: metrics, log: log, now: time.Now}
}

// Cutoff is the UTC start of today minus windowDays. Activity strictly before
// the cutoff counts as inactive, so results do not drift during a day.
func Cutoff(now time.Time, windowDays int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -windowDays)
}

// FindInactive returns identities with role whose latest activity is before
// the cutoff, or who never had any.
func (s *InactivitySweep) FindInactive(ctx context.Context, role domain.Role, windowDays int) (out []domain.Identity, err error) {
	defer obs.Time(ctx, "sweep.find_inactive")(&err)

	if role != domain.RoleResident && role != domain.RoleCollector {
		return nil, domain.NewValidationError("role", "must be resident or collector")
	}
	if windowDays <= 0 {
		windowDays = DefaultInactivityWindowDays
	}

	all, err := s.repo.ListActivity(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("find inactive %s: %w", role, err)
	}

	cutoff := Cutoff(s.now(), windowDays)
	out = make([]domain.Identity, 0)
	for _, id := range all {
		if id.LastActivity == nil || id.LastActivity.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

type SweepReport struct {
	Role     domain.Role
	Inactive int
	Notified int
	Failed   int
}

// Run finds inactive identities for role and sends each one notification.
// A failed delivery is logged and counted; the remaining identities are
// still notified.
func (s *InactivitySweep) Run(ctx context.Context, role domain.Role, windowDays int) (SweepReport, error) {
	rep := SweepReport{Role: role}
	inactive, err := s.FindInactive(ctx, role, windowDays)
	if err != nil {
		return rep, err
	}
	rep.Inactive = len(inactive)

	subject, body := inactivityMessage(role)
	for _, id := range inactive {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if err := s.notifier.Notify(ctx, id, subject, body); err != nil {
			rep.Failed++
			s.metrics.Notification(string(role), "failed")
			s.log.Warn().Err(err).Str("identity_id", id.ID.String()).Str("role", string(role)).Msg("inactivity notification failed")
			continue
		}
		rep.Notified++
		s.metrics.Notification(string(role), "sent")
	}

	s.log.Info().
		Str("role", string(role)).
		Int("inactive", rep.Inactive).
		Int("notified", rep.Notified).
		Int("failed", rep.Failed).
		Msg("inactivity sweep finished")
	return rep, nil
}

func inactivityMessage(role domain.Role) (string, string) {
	if role == domain.RoleCollector {
		return "No completed pickups this week",
			"You have not completed a pickup in the last week. Please check your assignment queue."
	}
	return "We miss you",
		"You have not requested a waste pickup in the last week. Schedule one whenever you are ready."
}
