/*
async.go - Bounded async task executor (spec §4.5).

PURPOSE:
  Fire-and-forget and future-style submission of background work (the
  cached-path persist, post-hook dispatch) bounded by a semaphore-based
  worker cap, with a shutdown flag that stops accepting new work and a
  wait that drains in-flight tasks.

GROUNDING:
  The teacher's api/scheduler.go ReconciliationScheduler establishes the
  start/stop/shutdown-flag/WaitGroup lifecycle this reuses; the bounded
  concurrency itself is modeled with golang.org/x/sync/semaphore, which
  several of the retrieval pack's worker-pool-shaped services
  (Sketchyjo-STACK-BACKEND-SERVICE, qazna.org) depend on for the same
  purpose.
*/
package ledger

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// AsyncExecutor runs background tasks bounded by a worker-count
// semaphore. Safe for concurrent use.
type AsyncExecutor struct {
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

func newAsyncExecutor(workers int, logger *zap.Logger) *AsyncExecutor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers < 1 {
			workers = 1
		}
	}
	return &AsyncExecutor{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
	}
}

// runAsync submits fn for background execution. If the executor is
// draining, fn runs synchronously instead (spec §4.5: shutdown must
// not silently drop submitted work).
func (e *AsyncExecutor) runAsync(fn func()) {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		e.runSyncRecover(fn)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		ctx := context.Background()
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.logger.Error("async executor: semaphore acquire failed", zap.Error(err))
			return
		}
		defer e.sem.Release(1)
		e.runSyncRecover(fn)
	}()
}

// supplyAsync runs fn in the worker pool and returns a channel that
// receives its result exactly once.
func supplyAsync[T any](e *AsyncExecutor, fn func() T) <-chan T {
	out := make(chan T, 1)
	e.runAsync(func() {
		out <- fn()
	})
	return out
}

// supplyWithTimeout waits up to timeout for result on ch, returning
// (zero, false) if the deadline elapses first.
func supplyWithTimeout[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	var zero T
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return zero, false
	}
}

// runSync runs fn on the calling goroutine with panic recovery, for
// callers on the direct (non-cached) path that want no dispatch at all.
func (e *AsyncExecutor) runSync(fn func()) {
	e.runSyncRecover(fn)
}

func (e *AsyncExecutor) runSyncRecover(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("async executor: recovered panic in task", zap.Any("panic", r))
		}
	}()
	fn()
}

// shutdown stops accepting background work (further runAsync calls run
// synchronously) and waits up to wait for in-flight tasks to drain.
func (e *AsyncExecutor) shutdown(wait time.Duration) {
	e.mu.Lock()
	e.draining = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
		e.logger.Warn("async executor: shutdown wait elapsed with tasks still in flight")
	}
}

// reset clears the draining flag, allowing the executor to accept
// background work again. Used by tests that reuse a Ledger instance
// across a simulated restart.
func (e *AsyncExecutor) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draining = false
}
