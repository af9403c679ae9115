package wait

// State describes where a member is in its lifecycle during a group wait.
type State int

const (
	// StateBlocked means the member has unmet dependencies and has not been
	// started. Members of a plain group never hold this state.
	StateBlocked State = iota
	// StatePending means the member is being polled and is not yet terminal.
	StatePending
	// StateCompleted means the member finished and reported success.
	StateCompleted
	// StateFailed means the member finished unsuccessfully or raised a
	// member-local failure.
	StateFailed
	// StateTimedOut means the deadline expired while the member was still
	// pending.
	StateTimedOut
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateBlocked:
		return "blocked"
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Terminal reports whether a member in this state is done being polled.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}
