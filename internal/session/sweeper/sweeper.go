// Package sweeper deletes dead session records from stores that do not expire them on
// their own (Postgres). Redis evicts sessions through key TTLs and needs no sweeping.
package sweeper

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"social-auth/backend/internal/metrics"
	"social-auth/backend/internal/telemetry"
)

// ExpiredDeleter removes sessions dead at now and reports how many were removed.
// Implemented by *sessionrepo.PostgresRepository.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	repo    ExpiredDeleter
	metrics *metrics.Metrics
	events  *telemetry.Async
	now     func() time.Time
}

// New returns a Sweeper over repo. m and events may be nil.
func New(repo ExpiredDeleter, m *metrics.Metrics, events *telemetry.Async) *Sweeper {
	return &Sweeper{
		repo:    repo,
		metrics: m,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type sweepMetadata struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}

// SweepOnce deletes every session dead at the current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.AddSessionsSwept(n)
		meta, _ := json.Marshal(sweepMetadata{Deleted: n, Cutoff: now})
		s.events.Emit(ctx, &telemetry.Event{
			EventType: telemetry.EventSessionsSwept,
			Source:    "session_sweeper",
			Severity:  telemetry.SeverityInfo,
			Metadata:  meta,
			CreatedAt: now,
		})
	}
	return n, nil
}

// Run sweeps immediately and then every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := s.SweepOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("sweeper: delete expired sessions: %v", err)
		} else if n > 0 {
			log.Printf("sweeper: deleted %d expired sessions", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
