package wait

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpcadm/hpcadm/internal/logger"
)

// Result partitions a group's members after a wait terminates. The
// partitions are disjoint, together cover every registered member, and
// preserve registration order.
type Result struct {
	Completed []Member // terminal, reported success
	Failed    []Member // reported failure or raised a member-local failure
	Pending   []Member // still being polled when the deadline expired
	Blocked   []Member // never started because an ancestor failed
}

// AllCompleted reports whether every member completed successfully.
func (r *Result) AllCompleted() bool {
	return len(r.Failed) == 0 && len(r.Pending) == 0 && len(r.Blocked) == 0
}

// Names returns the names of the given members, in order.
func Names(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name()
	}
	return names
}

// GroupWaiter polls a set of members each round until all are terminal or
// the deadline policy gives up. Failures are isolated per member: one
// member failing never aborts the others.
type GroupWaiter struct {
	name    string
	members []Member
	states  []State
	sched   *schedule
	hook    func(ctx context.Context) error
	notify  func(Member, State)
}

// NewGroupWaiter builds a group wait over members. name describes the
// awaited condition in logs.
func NewGroupWaiter(name string, members []Member, timeout time.Duration, opts ...Option) *GroupWaiter {
	s := newSettings(opts)
	g := &GroupWaiter{
		name:    name,
		members: members,
		states:  make([]State, len(members)),
		sched:   newSchedule(timeout, s),
		hook:    s.retryHook,
		notify:  s.transition,
	}
	for i := range g.states {
		g.states[i] = StatePending
	}
	return g
}

// Name returns the condition description supplied at construction.
func (g *GroupWaiter) Name() string { return g.name }

// Wait blocks until every member is terminal or the deadline and retries
// are exhausted, then partitions the members. Context cancellation ends
// the wait early with the unfinished members reported as pending.
func (g *GroupWaiter) Wait(ctx context.Context) *Result {
	g.sched.start()
	g.run(ctx, nil)
	return g.result()
}

// run drives polling rounds until no member is pending or the deadline
// policy gives up. onSuccess, when non-nil, is invoked with the index of
// each member that completes successfully, before the round advances.
func (g *GroupWaiter) run(ctx context.Context, onSuccess func(int)) {
	for {
		g.pollRound(ctx, onSuccess)
		if g.pendingCount() == 0 {
			return
		}
		if g.sched.expired() {
			if !g.sched.consumeRetry() {
				logger.Log.WithFields(logrus.Fields{
					"group":   g.name,
					"pending": g.pendingCount(),
					"timeout": g.sched.timeout,
				}).Warn("Timed out waiting for group")
				return
			}
			g.recover(ctx)
			g.sched.start()
		}
		if !g.sched.rest(ctx) {
			logger.Log.WithFields(logrus.Fields{
				"group": g.name,
			}).Warn("Group wait canceled")
			return
		}
	}
}

// pollRound checks every pending member once. A member is never polled
// again after reaching a terminal state.
func (g *GroupWaiter) pollRound(ctx context.Context, onSuccess func(int)) {
	for i, m := range g.members {
		if g.states[i] != StatePending {
			continue
		}
		done, err := checkMember(ctx, m)
		switch {
		case err != nil && IsFailed(err):
			logger.Log.WithFields(logrus.Fields{
				"group":  g.name,
				"member": m.Name(),
			}).WithError(err).Error("Member failed")
			g.setState(i, StateFailed)
		case err != nil:
			logger.Log.WithFields(logrus.Fields{
				"group":  g.name,
				"member": m.Name(),
			}).WithError(err).Warn("Completion check failed; will retry next round")
		case done:
			if m.Succeeded() {
				g.setState(i, StateCompleted)
				if onSuccess != nil {
					onSuccess(i)
				}
			} else {
				logger.Log.WithFields(logrus.Fields{
					"group":  g.name,
					"member": m.Name(),
				}).Error("Member completed unsuccessfully")
				g.setState(i, StateFailed)
			}
		}
	}
}

// checkMember runs one completion check, converting a panic into a
// member-local failure so a broken check cannot take down the whole wait.
func checkMember(ctx context.Context, m Member) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done = false
			err = Failf("completion check panicked: %v", r)
		}
	}()
	return m.Completed(ctx)
}

func (g *GroupWaiter) setState(i int, s State) {
	g.states[i] = s
	if g.notify != nil {
		g.notify(g.members[i], s)
	}
}

func (g *GroupWaiter) pendingCount() int {
	n := 0
	for _, s := range g.states {
		if s == StatePending {
			n++
		}
	}
	return n
}

// recover runs the retry hook ahead of a fresh deadline window.
func (g *GroupWaiter) recover(ctx context.Context) {
	logger.Log.WithFields(logrus.Fields{
		"group":     g.name,
		"pending":   g.pendingCount(),
		"remaining": g.sched.retries,
	}).Info("Deadline expired; retrying")
	if g.hook == nil {
		return
	}
	if err := g.hook(ctx); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"group": g.name,
		}).WithError(err).Warn("Retry hook failed")
	}
}

// result moves members still pending into the timed-out state and builds
// the partitions in registration order.
func (g *GroupWaiter) result() *Result {
	res := &Result{}
	for i, m := range g.members {
		switch g.states[i] {
		case StateCompleted:
			res.Completed = append(res.Completed, m)
		case StateFailed:
			res.Failed = append(res.Failed, m)
		case StatePending:
			g.setState(i, StateTimedOut)
			res.Pending = append(res.Pending, m)
		case StateTimedOut:
			res.Pending = append(res.Pending, m)
		case StateBlocked:
			res.Blocked = append(res.Blocked, m)
		}
	}
	return res
}
