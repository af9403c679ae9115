package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hpcadm/hpcadm/internal/gateway"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// SessionMember waits for one configuration session to finish. A session
// that vanishes mid-wait is a permanent member failure; transport errors
// are transient. Success is whatever the service reports once the session
// completes.
type SessionMember struct {
	SessionName string

	client    *Client
	succeeded bool
}

// NewSessionMember builds a member awaiting the named session.
func NewSessionMember(client *Client, name string) *SessionMember {
	return &SessionMember{SessionName: name, client: client}
}

// Name implements wait.Member.
func (m *SessionMember) Name() string { return m.SessionName }

// Completed reports whether the session has reached the complete state,
// capturing the service's success verdict as it does.
func (m *SessionMember) Completed(ctx context.Context) (bool, error) {
	s, err := m.client.GetSession(ctx, m.SessionName)
	if err != nil {
		var status *gateway.StatusError
		if errors.As(err, &status) && status.Code == http.StatusNotFound {
			return false, wait.Failf("session %s no longer exists", m.SessionName)
		}
		return false, err
	}
	if s.Status.State != StateComplete {
		return false, nil
	}
	m.succeeded = s.Status.Succeeded
	return true, nil
}

// Succeeded implements wait.Member.
func (m *SessionMember) Succeeded() bool { return m.succeeded }

// WaitForSessions polls until every named session completes or the deadline
// policy gives up, and returns the partitioned outcome.
func WaitForSessions(ctx context.Context, client *Client, names []string, timeout time.Duration, opts ...wait.Option) *wait.Result {
	members := make([]wait.Member, 0, len(names))
	for _, name := range names {
		members = append(members, NewSessionMember(client, name))
	}
	group := wait.NewGroupWaiter("configuration sessions", members, timeout, opts...)
	return group.Wait(ctx)
}
