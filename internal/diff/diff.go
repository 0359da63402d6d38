// Package diff decides how a local thread record must change to match the
// remote thread, and applies that decision.
//
// Replies are identified by position: the remote thread is assumed to be
// append-only, so the first len(local.Replies) remote replies are the ones
// already stored.
package diff

import (
	"errors"
	"fmt"
	"slices"

	"board_mirror/internal/model"
)

// Action is the outcome of comparing local and remote state.
type Action int

// Possible actions.
const (
	Skip Action = iota
	Create
	Append
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Append:
		return "append"
	default:
		return "skip"
	}
}

// Decision describes the change needed for one thread. For Append, From is
// the index of the first remote reply not stored locally and Count the number
// of replies the remote side reported beyond it.
type Decision struct {
	Action Action
	From   int
	Count  int
}

var (
	// ErrOutOfOrder reports that the new remote replies are older than the
	// last stored one, which means the remote thread was reordered or had
	// interior replies deleted.
	ErrOutOfOrder = errors.New("remote replies out of order")

	// ErrNothingNew reports that the fetched thread has no replies beyond the
	// stored ones, even though its reported reply count said otherwise.
	ErrNothingNew = errors.New("no new replies")
)

// Decide compares a local record (nil when absent) with the remote reply count.
func Decide(local *model.ThreadRecord, remoteReplies int) Decision {
	if local == nil {
		return Decision{Action: Create}
	}
	have := len(local.Replies)
	if remoteReplies > have {
		return Decision{Action: Append, From: have, Count: remoteReplies - have}
	}
	return Decision{Action: Skip}
}

// Apply returns the record that results from applying d with the fetched
// remote thread. Neither argument is modified.
func Apply(local, remote *model.ThreadRecord, d Decision) (*model.ThreadRecord, error) {
	switch d.Action {
	case Create:
		rec := *remote
		rec.Replies = slices.Clone(remote.Replies)
		if rec.Replies == nil {
			rec.Replies = []model.Reply{}
		}
		return &rec, nil
	case Append:
		if d.From != len(local.Replies) {
			return nil, fmt.Errorf("append from %d with %d stored replies", d.From, len(local.Replies))
		}
		if len(remote.Replies) <= d.From {
			return nil, ErrNothingNew
		}
		added := remote.Replies[d.From:]
		if n := len(local.Replies); n > 0 && added[0].Date.Before(local.Replies[n-1].Date) {
			return nil, fmt.Errorf("%w: reply %d dated %s before stored %s",
				ErrOutOfOrder, d.From, added[0].Date, local.Replies[n-1].Date)
		}
		rec := *local
		rec.Replies = append(slices.Clone(local.Replies), added...)
		return &rec, nil
	default:
		return local, nil
	}
}
