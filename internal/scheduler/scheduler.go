// Package scheduler runs synchronization rounds periodically and on demand.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"board_mirror/internal/syncer"
)

// Runner runs the two passes of a round.
type Runner interface {
	CatalogPass(ctx context.Context) (syncer.Report, error)
	ArchivePass(ctx context.Context) (syncer.Report, error)
}

// Scheduler runs one round (catalog pass, then archive pass) at start-up and
// then once per tick. Rounds never overlap, so no two passes touch the same
// thread at once.
type Scheduler struct {
	runner  Runner
	log     *slog.Logger
	tick    time.Duration
	trigger chan struct{}

	mu   sync.Mutex
	last map[syncer.Kind]syncer.Report
}

// New creates a Scheduler that runs a round every interval.
func New(runner Runner, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		log:     log,
		tick:    interval,
		trigger: make(chan struct{}, 1),
		last:    make(map[syncer.Kind]syncer.Report),
	}
}

// SetTickInterval overrides the round interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		case <-s.trigger:
			s.log.Info("manual sync requested")
			_ = s.RunOnce(ctx)
			ticker.Reset(s.tick)
		}
	}
}

// Trigger asks Run to start a round now. It reports false if a request is
// already queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce runs a single round. A failed catalog pass does not prevent the
// archive pass.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	catalog, catalogErr := s.runner.CatalogPass(ctx)
	s.record(catalog)
	if ctx.Err() != nil {
		return errors.Join(catalogErr, ctx.Err())
	}

	archive, archiveErr := s.runner.ArchivePass(ctx)
	s.record(archive)

	s.log.Info("round finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return errors.Join(catalogErr, archiveErr)
}

// LastReports returns the most recent report of each pass kind, catalog first.
func (s *Scheduler) LastReports() []syncer.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []syncer.Report
	for _, k := range []syncer.Kind{syncer.KindCatalog, syncer.KindArchive} {
		if r, ok := s.last[k]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Scheduler) record(r syncer.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[r.Kind] = r
}
