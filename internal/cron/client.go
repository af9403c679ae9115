package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hpcadm/hpcadm/internal/gateway"
)

const basePath = "/scheduler/v1"

// Job is a management-plane cron job.
type Job struct {
	Name             string     `json:"name"`
	Suspended        bool       `json:"suspended"`
	Schedule         string     `json:"schedule"` // cron expression
	LastScheduleTime *time.Time `json:"lastScheduleTime,omitempty"`
}

// Client wraps the job scheduler endpoints.
type Client struct {
	gw *gateway.Client
}

// NewClient builds a cron client on top of the shared gateway client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// GetJob fetches a cron job by name.
func (c *Client) GetJob(ctx context.Context, name string) (*Job, error) {
	var out Job
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/jobs/%s", basePath, name), &out); err != nil {
		return nil, fmt.Errorf("fetching cron job %s: %w", name, err)
	}
	return &out, nil
}

// SetSuspended suspends or resumes a cron job.
func (c *Client) SetSuspended(ctx context.Context, name string, suspended bool) error {
	patch := struct {
		Suspended bool `json:"suspended"`
	}{Suspended: suspended}
	if err := c.gw.PatchJSON(ctx, fmt.Sprintf("%s/jobs/%s", basePath, name), patch, nil); err != nil {
		return fmt.Errorf("setting suspended=%t on cron job %s: %w", suspended, name, err)
	}
	return nil
}
