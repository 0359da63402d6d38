// Package syncer runs the catalog and archive synchronization passes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"board_mirror/internal/cursor"
	"board_mirror/internal/diff"
	"board_mirror/internal/model"
	"board_mirror/internal/storage"
)

// ErrIndexFetch is wrapped by pass errors caused by a failed index fetch
// (catalog, mod-time index or archive list). No partial index is usable, so
// the whole pass is abandoned.
var ErrIndexFetch = errors.New("index fetch failed")

// Source is the remote side of a pass.
type Source interface {
	FetchCatalog(ctx context.Context) ([]model.CatalogPage, error)
	FetchThreadModTimes(ctx context.Context) (map[int64]time.Time, error)
	FetchArchiveIDs(ctx context.Context) ([]int64, error)
	FetchThread(ctx context.Context, id int64) (*model.ThreadRecord, error)
}

// ClaimPolicy controls when a pass writes its modification timestamp.
type ClaimPolicy int

const (
	// ClaimBeforeWork persists the pass timestamp before any remote work.
	// A pass that crashes or fails midway is not repeated for the same
	// window; changes inside that window may be missed.
	ClaimBeforeWork ClaimPolicy = iota

	// ConfirmAfterWork persists the pass timestamp only after every shard
	// finished. A failed pass leaves the cursor untouched and the next pass
	// covers the same window again.
	ConfirmAfterWork
)

// ParseClaimPolicy maps a configuration value to a ClaimPolicy.
func ParseClaimPolicy(s string) (ClaimPolicy, error) {
	switch s {
	case "", "claim-before-work":
		return ClaimBeforeWork, nil
	case "confirm-after-work":
		return ConfirmAfterWork, nil
	default:
		return 0, fmt.Errorf("unknown claim policy %q", s)
	}
}

func (p ClaimPolicy) String() string {
	if p == ConfirmAfterWork {
		return "confirm-after-work"
	}
	return "claim-before-work"
}

// Kind names a pass.
type Kind string

// Pass kinds.
const (
	KindCatalog Kind = "catalog"
	KindArchive Kind = "archive"
)

// Outcome is the terminal state of one thread within a pass.
type Outcome int

// Thread outcomes.
const (
	OutcomeCreated Outcome = iota
	OutcomeAppended
	OutcomeSkipped
	OutcomeUnchanged
	OutcomeFetchFailed
	OutcomeStoreFailed
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAppended:
		return "appended"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeStoreFailed:
		return "store_failed"
	default:
		return "unknown"
	}
}

// Report summarizes one pass.
type Report struct {
	Kind      Kind
	StartedAt time.Time
	Duration  time.Duration
	Created   int
	Appended  int
	Skipped   int
	Unchanged int
	Failed    int
	Err       error
}

type tally [numOutcomes]atomic.Int64

func (t *tally) add(o Outcome) {
	t[o].Add(1)
}

func (t *tally) report(kind Kind, started time.Time, elapsed time.Duration, err error) Report {
	return Report{
		Kind:      kind,
		StartedAt: started,
		Duration:  elapsed,
		Created:   int(t[OutcomeCreated].Load()),
		Appended:  int(t[OutcomeAppended].Load()),
		Skipped:   int(t[OutcomeSkipped].Load()),
		Unchanged: int(t[OutcomeUnchanged].Load()),
		Failed:    int(t[OutcomeFetchFailed].Load() + t[OutcomeStoreFailed].Load()),
		Err:       err,
	}
}

// Options configures a Syncer.
type Options struct {
	Shards int
	Policy ClaimPolicy
	Now    func() time.Time
}

// Syncer drives catalog and archive passes. The cursor is re-read at the
// start of every pass and never cached between passes.
type Syncer struct {
	source  Source
	store   storage.Storage
	cursors cursor.Store
	log     *slog.Logger
	shards  int
	policy  ClaimPolicy
	now     func() time.Time
}

// New creates a Syncer.
func New(source Source, store storage.Storage, cursors cursor.Store, log *slog.Logger, opts Options) *Syncer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Syncer{
		source:  source,
		store:   store,
		cursors: cursors,
		log:     log,
		shards:  max(opts.Shards, 1),
		policy:  opts.Policy,
		now:     now,
	}
}

// syncThread brings one thread up to date. remoteReplies is the reply count
// reported by an index, or -1 when unknown; an unknown count forces a fetch
// before deciding whether an existing record changed.
func (s *Syncer) syncThread(ctx context.Context, kind Kind, id int64, remoteReplies int, t *tally) {
	log := s.log.With("location", kind, "thread_id", id)

	local, err := s.store.GetThread(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Error("read thread record", "error", err)
		t.add(OutcomeStoreFailed)
		return
	}

	var remote *model.ThreadRecord
	if local != nil && remoteReplies < 0 {
		if remote, err = s.source.FetchThread(ctx, id); err != nil {
			log.Warn("fetch thread", "error", err)
			t.add(OutcomeFetchFailed)
			return
		}
		remoteReplies = len(remote.Replies)
	}

	d := diff.Decide(local, remoteReplies)
	if d.Action == diff.Skip {
		t.add(OutcomeSkipped)
		return
	}

	if remote == nil {
		if remote, err = s.source.FetchThread(ctx, id); err != nil {
			log.Warn("fetch thread", "error", err)
			t.add(OutcomeFetchFailed)
			return
		}
	}

	rec, err := diff.Apply(local, remote, d)
	if errors.Is(err, diff.ErrNothingNew) {
		t.add(OutcomeSkipped)
		return
	}
	if err != nil {
		log.Warn("merge thread", "error", err)
		t.add(OutcomeFetchFailed)
		return
	}

	if err := s.store.PutThread(ctx, id, rec); err != nil {
		log.Error("write thread record", "error", err)
		t.add(OutcomeStoreFailed)
		return
	}

	switch d.Action {
	case diff.Create:
		log.Info("saved new thread", "replies", len(rec.Replies))
		t.add(OutcomeCreated)
	case diff.Append:
		log.Info("thread updated", "new_replies", len(rec.Replies)-len(local.Replies), "replies", len(rec.Replies))
		t.add(OutcomeAppended)
	}
}

func (s *Syncer) finish(kind Kind, started time.Time, t *tally, err error) (Report, error) {
	rep := t.report(kind, started, s.now().Sub(started), err)
	log := s.log.With("pass", kind, "duration", rep.Duration,
		"created", rep.Created, "appended", rep.Appended, "skipped", rep.Skipped,
		"unchanged", rep.Unchanged, "failed", rep.Failed)
	if err != nil {
		log.Error("pass failed", "error", err)
		return rep, err
	}
	log.Info("pass finished")
	return rep, nil
}
