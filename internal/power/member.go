package power

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hpcadm/hpcadm/internal/gateway"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// StateMember waits for one component to reach a target power state.
// An unknown component is a permanent member failure; transport errors
// are transient and leave the member pending for the next round.
type StateMember struct {
	Xname  string
	Target string

	client *Client
}

// NewStateMember builds a member awaiting xname in the target state.
func NewStateMember(client *Client, xname, target string) *StateMember {
	return &StateMember{Xname: xname, Target: target, client: client}
}

// Name implements wait.Member.
func (m *StateMember) Name() string { return m.Xname }

// Completed reports whether the component has reached the target state.
func (m *StateMember) Completed(ctx context.Context) (bool, error) {
	ps, err := m.client.GetPowerState(ctx, m.Xname)
	if err != nil {
		var status *gateway.StatusError
		if errors.As(err, &status) && status.Code == http.StatusNotFound {
			return false, wait.Failf("component %s not known to the power service", m.Xname)
		}
		return false, err
	}
	return ps.State == m.Target, nil
}

// Succeeded implements wait.Member. Reaching the target state is the only
// success criterion, so a completed state member always succeeded.
func (m *StateMember) Succeeded() bool { return true }

// WaitForStates polls until every xname reports the target power state or
// the deadline policy gives up, and returns the partitioned outcome.
func WaitForStates(ctx context.Context, client *Client, xnames []string, target string, timeout time.Duration, opts ...wait.Option) *wait.Result {
	members := make([]wait.Member, 0, len(xnames))
	for _, xname := range xnames {
		members = append(members, NewStateMember(client, xname, target))
	}
	group := wait.NewGroupWaiter(fmt.Sprintf("power %s", target), members, timeout, opts...)
	return group.Wait(ctx)
}
