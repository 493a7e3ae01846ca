package deploy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of a fan-out.
type Task func(ctx context.Context) error

// RunAll starts every task without waiting for the previous one and blocks
// until all of them have returned. It returns the first error observed; the
// remaining tasks still run to completion.
func RunAll(ctx context.Context, tasks ...Task) error {
	var group errgroup.Group
	for _, task := range tasks {
		if task == nil {
			continue
		}
		group.Go(func() error {
			return task(ctx)
		})
	}
	return group.Wait()
}
