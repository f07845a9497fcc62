// Package fanout runs one task per key concurrently and settles all of them.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Run calls fn once per key with at most limit tasks in flight (limit <= 0 is
// unbounded). A failing or panicking task never cancels its siblings; every
// failure is combined into the returned error, which multierr.Errors splits.
func Run[K any](ctx context.Context, limit int, keys []K, fn func(context.Context, K) error) error {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		err error
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, k := range keys {
		g.Go(func() error {
			if e := call(ctx, k, fn); e != nil {
				mu.Lock()
				err = multierr.Append(err, e)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return err
}

func call[K any](ctx context.Context, k K, fn func(context.Context, K) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %v panicked: %v", k, r)
		}
	}()
	return fn(ctx, k)
}
