package sessions

import (
	"context"
	"fmt"

	"github.com/hpcadm/hpcadm/internal/gateway"
)

const basePath = "/config/v1"

// Session states reported by the configuration service.
const (
	StatePending  = "pending"
	StateRunning  = "running"
	StateComplete = "complete"
)

// SessionStatus is the lifecycle state of a configuration session.
type SessionStatus struct {
	State     string `json:"state"`     // pending | running | complete
	Succeeded bool   `json:"succeeded"` // meaningful once State is complete
}

// Session is one configuration run against an image or node set.
type Session struct {
	Name   string        `json:"name"`
	Status SessionStatus `json:"status"`
}

// SessionRequest asks the configuration service to run a new session.
type SessionRequest struct {
	Name          string `json:"name"`
	Configuration string `json:"configurationName"`
	ImageID       string `json:"imageId,omitempty"` // set for image customization sessions
}

// Client wraps the configuration service session endpoints.
type Client struct {
	gw *gateway.Client
}

// NewClient builds a sessions client on top of the shared gateway client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// CreateSession starts a new configuration session. The service answers
// immediately; the session runs asynchronously.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var out Session
	if err := c.gw.PostJSON(ctx, basePath+"/sessions", req, &out); err != nil {
		return nil, fmt.Errorf("creating session %s: %w", req.Name, err)
	}
	return &out, nil
}

// GetSession fetches a session by name.
func (c *Client) GetSession(ctx context.Context, name string) (*Session, error) {
	var out Session
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/sessions/%s", basePath, name), &out); err != nil {
		return nil, fmt.Errorf("fetching session %s: %w", name, err)
	}
	return &out, nil
}

// DeleteSession removes a session record.
func (c *Client) DeleteSession(ctx context.Context, name string) error {
	if err := c.gw.Delete(ctx, fmt.Sprintf("%s/sessions/%s", basePath, name)); err != nil {
		return fmt.Errorf("deleting session %s: %w", name, err)
	}
	return nil
}
