package wait

import (
	"errors"
	"fmt"
	"strings"
)

// FailedError is the member-local failure signal. A completion check that
// returns an error wrapped by Fail marks only that member as failed; any
// other error is treated as transient and the member is polled again next
// round.
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("member failed: %v", e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Fail wraps err as a member-local failure. A nil err stays nil.
func Fail(err error) error {
	if err == nil {
		return nil
	}
	return &FailedError{Err: err}
}

// Failf is Fail with formatting.
func Failf(format string, args ...any) error {
	return &FailedError{Err: fmt.Errorf(format, args...)}
}

// IsFailed reports whether err carries a member-local failure signal.
func IsFailed(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

// CycleError reports a dependency cycle found while validating a group.
// Members holds the cycle in the order the members would execute.
type CycleError struct {
	Members []DependencyMember
}

func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Members)+1)
	for _, m := range e.Members {
		names = append(names, m.Name())
	}
	if len(e.Members) > 0 {
		names = append(names, e.Members[0].Name())
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(names, " -> "))
}
