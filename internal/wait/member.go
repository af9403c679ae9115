package wait

import "context"

// Condition is a single awaited fact, polled by a Waiter.
type Condition interface {
	// Name describes what is being awaited, for logging.
	Name() string
	// Satisfied reports whether the condition now holds. An error is logged
	// and treated as "not yet satisfied" for the round.
	Satisfied(ctx context.Context) (bool, error)
}

// Member is one unit of asynchronous work tracked by a group wait: an xname
// whose power state is changing, an image being built, a job being
// rescheduled. Members are supplied by the caller; the framework holds only
// references for the duration of a single Wait call.
type Member interface {
	// Name identifies the member in logs and reports.
	Name() string
	// Completed reports whether the member reached a terminal state. It may
	// start a follow-up remote call as a side effect. Returning an error
	// wrapped by Fail marks the member failed; any other error is transient
	// and the member stays pending.
	Completed(ctx context.Context) (bool, error)
	// Succeeded reports whether the member finished successfully. Valid only
	// once Completed has returned true.
	Succeeded() bool
}

// DependencyMember is a Member whose start is gated on other members of the
// same group completing successfully. Implementations must be comparable by
// pointer; the group resolves dependency references by identity.
type DependencyMember interface {
	Member
	// Begin starts the member's underlying asynchronous operation. The group
	// invokes it at most once, only after every dependency completed
	// successfully.
	Begin(ctx context.Context) error
	// Dependencies returns the members this member waits on.
	Dependencies() []DependencyMember
	// HasDependencies reports whether any dependencies are registered.
	HasDependencies() bool
	// AddDependency records dep as a prerequisite of this member.
	AddDependency(dep DependencyMember)
	// RemoveDependency removes dep from the prerequisites.
	RemoveDependency(dep DependencyMember)
}

// DependencySet implements the dependency bookkeeping half of
// DependencyMember and is meant to be embedded by concrete members. Edges
// must not be mutated once a wait has started.
type DependencySet struct {
	deps []DependencyMember
}

// Dependencies returns the registered prerequisites.
func (s *DependencySet) Dependencies() []DependencyMember { return s.deps }

// HasDependencies reports whether any prerequisites are registered.
func (s *DependencySet) HasDependencies() bool { return len(s.deps) > 0 }

// AddDependency records dep as a prerequisite. Adding the same member twice
// is a no-op.
func (s *DependencySet) AddDependency(dep DependencyMember) {
	for _, d := range s.deps {
		if d == dep {
			return
		}
	}
	s.deps = append(s.deps, dep)
}

// RemoveDependency removes dep from the prerequisites if present.
func (s *DependencySet) RemoveDependency(dep DependencyMember) {
	for i, d := range s.deps {
		if d == dep {
			s.deps = append(s.deps[:i], s.deps[i+1:]...)
			return
		}
	}
}
