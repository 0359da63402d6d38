// Package shard splits work lists into contiguous shards and runs them as a
// bounded group of concurrent tasks.
package shard

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Split divides items into n contiguous shards of ceil(len/n) items each,
// preserving order. Exactly max(n, 1) shards are returned; when n exceeds
// len(items) the trailing shards are empty.
func Split[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	size := (len(items) + n - 1) / n

	shards := make([][]T, n)
	for i := range shards {
		lo := min(i*size, len(items))
		hi := min(lo+size, len(items))
		shards[i] = items[lo:hi:hi]
	}
	return shards
}

// Run splits items into n shards and processes each non-empty shard in its
// own goroutine, calling fn for every item in shard order. It returns once
// all shards are done, or with ctx's error if ctx was cancelled before every
// item was visited.
func Run[T any](ctx context.Context, items []T, n int, fn func(ctx context.Context, item T)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(n, 1))

	for _, s := range Split(items, n) {
		if len(s) == 0 {
			continue
		}
		g.Go(func() error {
			for _, item := range s {
				if err := ctx.Err(); err != nil {
					return err
				}
				fn(ctx, item)
			}
			return nil
		})
	}
	return g.Wait()
}
