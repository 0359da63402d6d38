package syncer

import (
	"context"
	"fmt"
	"slices"
	"time"

	"board_mirror/internal/model"
	"board_mirror/internal/shard"
)

// ArchivePass mirrors archived threads that appeared after the last archive
// id seen by the previous pass. The archive feed carries no timestamps, so
// every pending id gets a local-existence check.
func (s *Syncer) ArchivePass(ctx context.Context) (Report, error) {
	started := s.now()
	var t tally

	cur, err := s.cursors.Read()
	if err != nil {
		return s.finish(KindArchive, started, &t, fmt.Errorf("read cursor: %w", err))
	}

	if s.policy == ClaimBeforeWork {
		if err := s.claim(KindArchive, s.now()); err != nil {
			return s.finish(KindArchive, started, &t, err)
		}
	}

	ids, err := s.source.FetchArchiveIDs(ctx)
	if err != nil {
		return s.finish(KindArchive, started, &t, fmt.Errorf("%w: %w", ErrIndexFetch, err))
	}
	if len(ids) == 0 {
		s.log.Warn("archive is empty", "last_archive_thread_id", cur.LastArchiveThreadID)
		return s.confirmArchive(started, &t, cur.LastArchiveThreadID)
	}

	pending := PendingArchiveIDs(ids, cur.LastArchiveThreadID)
	s.log.Debug("archive fetched", "ids", len(ids), "pending", len(pending), "resume_after", cur.LastArchiveThreadID)

	err = shard.Run(ctx, pending, s.shards, func(ctx context.Context, id int64) {
		s.syncThread(ctx, KindArchive, id, -1, &t)
	})
	if err != nil {
		return s.finish(KindArchive, started, &t, fmt.Errorf("archive shards: %w", err))
	}

	return s.confirmArchive(started, &t, ids[len(ids)-1])
}

func (s *Syncer) confirmArchive(started time.Time, t *tally, last int64) (Report, error) {
	_, err := s.cursors.Update(func(c *model.SyncCursor) {
		c.LastArchiveThreadID = last
		if s.policy == ConfirmAfterWork {
			c.ArchiveModifiedAt = started
		}
	})
	if err != nil {
		return s.finish(KindArchive, started, t, fmt.Errorf("advance archive cursor: %w", err))
	}
	return s.finish(KindArchive, started, t, nil)
}

// PendingArchiveIDs returns the ids strictly after last. When last is no
// longer in the archive window the first id is taken as the resume point.
func PendingArchiveIDs(ids []int64, last int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	i := slices.Index(ids, last)
	if i < 0 {
		i = 0
	}
	return ids[i+1:]
}
