package wait

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpcadm/hpcadm/internal/logger"
)

// Waiter polls a single condition until it is satisfied or the deadline
// policy exhausts its retries.
type Waiter struct {
	cond  Condition
	sched *schedule
	hook  func(ctx context.Context) error
}

// NewWaiter builds a waiter around cond with the given timeout. By default
// the poll interval is one second and there are no retries.
func NewWaiter(cond Condition, timeout time.Duration, opts ...Option) *Waiter {
	s := newSettings(opts)
	return &Waiter{cond: cond, sched: newSchedule(timeout, s), hook: s.retryHook}
}

// Name returns the description of the awaited condition.
func (w *Waiter) Name() string { return w.cond.Name() }

// Wait blocks until the condition is satisfied (true) or the deadline and
// retry budget are exhausted (false). Errors from the condition are logged
// and count as "not yet satisfied" for that round. Context cancellation
// ends the wait with false.
func (w *Waiter) Wait(ctx context.Context) bool {
	w.sched.start()
	for {
		ok, err := w.cond.Satisfied(ctx)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"condition": w.cond.Name(),
			}).WithError(err).Warn("Condition check failed; will retry next round")
		} else if ok {
			return true
		}
		if w.sched.expired() {
			if !w.sched.consumeRetry() {
				logger.Log.WithFields(logrus.Fields{
					"condition": w.cond.Name(),
					"timeout":   w.sched.timeout,
				}).Warn("Timed out waiting for condition")
				return false
			}
			w.recover(ctx)
			w.sched.start()
		}
		if !w.sched.rest(ctx) {
			logger.Log.WithFields(logrus.Fields{
				"condition": w.cond.Name(),
			}).Warn("Wait canceled before condition was satisfied")
			return false
		}
	}
}

// recover runs the retry hook ahead of a fresh deadline window.
func (w *Waiter) recover(ctx context.Context) {
	logger.Log.WithFields(logrus.Fields{
		"condition": w.cond.Name(),
		"remaining": w.sched.retries,
	}).Info("Deadline expired; retrying")
	if w.hook == nil {
		return
	}
	if err := w.hook(ctx); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"condition": w.cond.Name(),
		}).WithError(err).Warn("Retry hook failed")
	}
}
