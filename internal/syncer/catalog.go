package syncer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"board_mirror/internal/model"
	"board_mirror/internal/shard"
)

// CatalogPass mirrors every live thread whose modification time is newer
// than the previous catalog pass.
func (s *Syncer) CatalogPass(ctx context.Context) (Report, error) {
	started := s.now()
	var t tally

	cur, err := s.cursors.Read()
	if err != nil {
		return s.finish(KindCatalog, started, &t, fmt.Errorf("read cursor: %w", err))
	}
	since := cur.CatalogModifiedAt

	if s.policy == ClaimBeforeWork {
		if err := s.claim(KindCatalog, s.now()); err != nil {
			return s.finish(KindCatalog, started, &t, err)
		}
	}

	var (
		pages []model.CatalogPage
		mods  map[int64]time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mods, err = s.source.FetchThreadModTimes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pages, err = s.source.FetchCatalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finish(KindCatalog, started, &t, fmt.Errorf("%w: %w", ErrIndexFetch, err))
	}

	s.log.Debug("catalog fetched", "pages", len(pages), "indexed", len(mods), "since", since)

	err = shard.Run(ctx, pages, s.shards, func(ctx context.Context, page model.CatalogPage) {
		for _, th := range page.Threads {
			s.syncCatalogThread(ctx, th, mods, since, &t)
		}
	})
	if err != nil {
		return s.finish(KindCatalog, started, &t, fmt.Errorf("catalog shards: %w", err))
	}

	if s.policy == ConfirmAfterWork {
		if err := s.claim(KindCatalog, started); err != nil {
			return s.finish(KindCatalog, started, &t, err)
		}
	}
	return s.finish(KindCatalog, started, &t, nil)
}

// syncCatalogThread skips threads not modified since the previous pass
// without any network call. Threads missing from the mod-time index are
// treated as modified.
func (s *Syncer) syncCatalogThread(ctx context.Context, th model.ThreadSummary, mods map[int64]time.Time, since time.Time, t *tally) {
	if mod, ok := mods[th.ID]; ok && mod.Unix()-since.Unix() <= 0 {
		t.add(OutcomeUnchanged)
		return
	}
	s.syncThread(ctx, KindCatalog, th.ID, th.Replies, t)
}

func (s *Syncer) claim(kind Kind, at time.Time) error {
	_, err := s.cursors.Update(func(c *model.SyncCursor) {
		switch kind {
		case KindCatalog:
			c.CatalogModifiedAt = at
		case KindArchive:
			c.ArchiveModifiedAt = at
		}
	})
	if err != nil {
		return fmt.Errorf("claim %s pass: %w", kind, err)
	}
	return nil
}
