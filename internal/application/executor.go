// Package application contains use-case orchestration services.
package application

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work submitted to an Executor. Tasks write their
// results into caller-owned slots and never share mutable state.
type Task func(ctx context.Context) error

// Executor runs a set of tasks and blocks until every one has finished.
type Executor interface {
	// Run executes all tasks and returns the first error any of them
	// returned. A failing task does not cancel the others.
	Run(ctx context.Context, tasks []Task) error
}

// Compile-time interface satisfaction checks.
var (
	_ Executor = (*PoolExecutor)(nil)
	_ Executor = SyncExecutor{}
)

// PoolExecutor runs tasks on at most workers goroutines at a time.
type PoolExecutor struct {
	workers int
}

// NewPoolExecutor creates a PoolExecutor. workers below 1 is treated as 1.
func NewPoolExecutor(workers int) *PoolExecutor {
	return &PoolExecutor{workers: max(workers, 1)}
}

// Workers returns the concurrency limit.
func (e *PoolExecutor) Workers() int {
	return e.workers
}

// Run implements Executor.
func (e *PoolExecutor) Run(ctx context.Context, tasks []Task) error {
	// A plain Group (not WithContext) lets every task run to completion.
	var g errgroup.Group
	g.SetLimit(e.workers)

	for _, task := range tasks {
		g.Go(func() error {
			return task(ctx)
		})
	}

	return g.Wait()
}

// SyncExecutor runs tasks one after another on the calling goroutine.
type SyncExecutor struct{}

// Run implements Executor.
func (SyncExecutor) Run(ctx context.Context, tasks []Task) error {
	var firstErr error
	for _, task := range tasks {
		if err := task(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
