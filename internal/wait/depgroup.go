package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpcadm/hpcadm/internal/logger"
)

// DependencyGroupWaiter stages a group wait so that no member begins before
// every one of its dependencies has completed successfully. Eligible
// members are released incrementally as dependencies finish; members whose
// ancestors fail are never started and end up in Result.Blocked.
type DependencyGroupWaiter struct {
	group   *GroupWaiter
	members []DependencyMember
	deps    [][]int // dependency edges as indexes into members
	began   []bool
}

// NewDependencyGroupWaiter validates the dependency graph over members and
// builds the staged wait. Every dependency must itself be registered in
// members, no member may be registered twice, and the graph must be acyclic;
// a cycle is rejected here with a *CycleError, never detected mid-wait.
func NewDependencyGroupWaiter(name string, members []DependencyMember, timeout time.Duration, opts ...Option) (*DependencyGroupWaiter, error) {
	index := make(map[DependencyMember]int, len(members))
	for i, m := range members {
		if _, ok := index[m]; ok {
			return nil, fmt.Errorf("member %q registered twice", m.Name())
		}
		index[m] = i
	}

	deps := make([][]int, len(members))
	for i, m := range members {
		for _, d := range m.Dependencies() {
			j, ok := index[d]
			if !ok {
				return nil, fmt.Errorf("member %q depends on %q, which is not in the group", m.Name(), d.Name())
			}
			deps[i] = append(deps[i], j)
		}
	}

	if cycle := findCycle(members, deps); cycle != nil {
		return nil, &CycleError{Members: cycle}
	}

	ms := make([]Member, len(members))
	for i, m := range members {
		ms[i] = m
	}
	g := NewGroupWaiter(name, ms, timeout, opts...)
	for i := range g.states {
		g.states[i] = StateBlocked
	}

	return &DependencyGroupWaiter{
		group:   g,
		members: members,
		deps:    deps,
		began:   make([]bool, len(members)),
	}, nil
}

// Name returns the condition description supplied at construction.
func (d *DependencyGroupWaiter) Name() string { return d.group.name }

// Wait starts every member that is eligible up front, then polls rounds,
// releasing dependents as their dependencies complete successfully. It
// returns once all started members are terminal or the deadline policy
// gives up; permanently blocked members are reported separately from the
// timed-out ones.
func (d *DependencyGroupWaiter) Wait(ctx context.Context) *Result {
	d.group.sched.start()
	d.release(ctx)
	d.group.run(ctx, func(int) { d.release(ctx) })
	return d.group.result()
}

// release begins every blocked member whose dependencies are all in the
// completed-successfully state.
func (d *DependencyGroupWaiter) release(ctx context.Context) {
	for i := range d.members {
		if d.group.states[i] == StateBlocked && d.eligible(i) {
			d.begin(ctx, i)
		}
	}
}

func (d *DependencyGroupWaiter) eligible(i int) bool {
	for _, j := range d.deps[i] {
		if d.group.states[j] != StateCompleted {
			return false
		}
	}
	return true
}

// begin invokes the member's start action exactly once and moves it into
// the polling set. A failed or panicking start marks the member failed
// without touching its siblings.
func (d *DependencyGroupWaiter) begin(ctx context.Context, i int) {
	if d.began[i] {
		return
	}
	d.began[i] = true

	m := d.members[i]
	if err := beginMember(ctx, m); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"group":  d.group.name,
			"member": m.Name(),
		}).WithError(err).Error("Failed to start member")
		d.group.setState(i, StateFailed)
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"group":  d.group.name,
		"member": m.Name(),
	}).Debug("Started member")
	d.group.setState(i, StatePending)
}

// beginMember isolates panics from a member's start action the same way
// checkMember does for completion checks.
func beginMember(ctx context.Context, m DependencyMember) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Failf("begin panicked: %v", r)
		}
	}()
	return m.Begin(ctx)
}

// findCycle runs a depth-first search over the dependency edges and, when
// a cycle exists, returns its members in the order they would execute.
func findCycle(members []DependencyMember, deps [][]int) []DependencyMember {
	const (
		unvisited = iota
		inPath
		done
	)
	color := make([]int, len(members))
	var path []int
	var cycle []int

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = inPath
		path = append(path, i)
		for _, j := range deps[i] {
			switch color[j] {
			case inPath:
				// The tail of the path from j back to i is the cycle.
				start := len(path) - 1
				for start > 0 && path[start] != j {
					start--
				}
				cycle = append(cycle, path[start:]...)
				return true
			case unvisited:
				if visit(j) {
					return true
				}
			}
		}
		color[i] = done
		path = path[:len(path)-1]
		return false
	}

	for i := range members {
		if color[i] == unvisited && visit(i) {
			// The path follows depends-on edges, so execution order is the
			// reverse of discovery order.
			out := make([]DependencyMember, 0, len(cycle))
			for k := len(cycle) - 1; k >= 0; k-- {
				out = append(out, members[cycle[k]])
			}
			return out
		}
	}
	return nil
}
