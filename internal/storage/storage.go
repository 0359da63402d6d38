// Package storage defines the thread record store and its implementations.
package storage

import (
	"context"
	"errors"

	"board_mirror/internal/model"
)

// ErrNotFound is returned when no record exists for a thread id.
var ErrNotFound = errors.New("thread record not found")

// Storage persists whole thread documents keyed by thread id.
type Storage interface {
	GetThread(ctx context.Context, id int64) (*model.ThreadRecord, error)
	PutThread(ctx context.Context, id int64, rec *model.ThreadRecord) error
	CountThreads(ctx context.Context) (int, error)

	Close() error
}
