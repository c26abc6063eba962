/*
hooks.go - Two-phase pre/post mutation hook dispatch (spec §4.2, §4.6).

PURPOSE:
  Pre-hooks observe a mutation before it is applied and can cancel it by
  setting PreHookEvent.Cancel; any subscriber setting it cancels the
  mutation for every later subscriber too, but every subscriber still
  runs (spec: "the flag is read only after every subscriber has been
  offered the event"). Post-hooks observe a committed mutation and
  cannot cancel anything. Dispatch never holds the account cache lock.

GROUNDING:
  No teacher file dispatches a two-phase cancellable hook; this follows
  the teacher's defensive-panic-recovery style from api/scheduler.go's
  ticker callback, generalized to per-subscriber recovery so one broken
  subscriber cannot take down the others.
*/
package ledger

import (
	"sync"

	"go.uber.org/zap"
)

// hookRegistry holds the pre/post subscriber lists for a Ledger
// instance. Subscription is expected at startup; dispatch is read-only
// over the slices, guarded only enough to make concurrent Subscribe
// calls safe.
type hookRegistry struct {
	mu      sync.RWMutex
	pre     []PreHookFunc
	post    []PostHookFunc
	logger  *zap.Logger
	metrics *Metrics
}

func newHookRegistry(logger *zap.Logger, metrics *Metrics) *hookRegistry {
	return &hookRegistry{logger: logger, metrics: metrics}
}

// SubscribePre registers a pre-mutation observer.
func (h *hookRegistry) SubscribePre(fn PreHookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pre = append(h.pre, fn)
}

// SubscribePost registers a post-mutation observer.
func (h *hookRegistry) SubscribePost(fn PostHookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.post = append(h.post, fn)
}

// dispatchPre offers evt to every pre-hook subscriber in registration
// order, then reports whether any subscriber cancelled. Every
// subscriber runs regardless of an earlier cancellation.
func (h *hookRegistry) dispatchPre(evt HookEvent) bool {
	h.mu.RLock()
	subs := make([]PreHookFunc, len(h.pre))
	copy(subs, h.pre)
	h.mu.RUnlock()

	pre := &PreHookEvent{HookEvent: evt}
	for _, fn := range subs {
		h.runPre(fn, pre)
	}
	return pre.Cancel
}

func (h *hookRegistry) runPre(fn PreHookFunc, evt *PreHookEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.HookPanicsTotal.WithLabelValues("pre").Inc()
			h.logger.Error("pre-hook subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(evt)
}

// dispatchPost offers evt to every post-hook subscriber in registration
// order. Called from the async executor's worker goroutine on the
// cached path, or inline on the direct path.
func (h *hookRegistry) dispatchPost(evt HookEvent) {
	h.mu.RLock()
	subs := make([]PostHookFunc, len(h.post))
	copy(subs, h.post)
	h.mu.RUnlock()

	for _, fn := range subs {
		h.runPost(fn, evt)
	}
}

func (h *hookRegistry) runPost(fn PostHookFunc, evt HookEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.HookPanicsTotal.WithLabelValues("post").Inc()
			h.logger.Error("post-hook subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(evt)
}
