package inventory

import (
	"context"
	"fmt"

	"github.com/hpcadm/hpcadm/internal/gateway"
)

const basePath = "/inventory/v1"

// Discovery statuses reported by the hardware state manager.
const (
	DiscoveryPending    = "Pending"
	DiscoveryInProgress = "InProgress"
	DiscoveryComplete   = "Complete"
)

// Component is one piece of managed hardware.
type Component struct {
	Xname   string `json:"id"`
	Type    string `json:"type"`
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
}

// DiscoveryStatus is the state of one discovery sweep.
type DiscoveryStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"` // Pending | InProgress | Complete
}

// Client wraps the hardware inventory endpoints.
type Client struct {
	gw *gateway.Client
}

// NewClient builds an inventory client on top of the shared gateway client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// GetComponents lists all known hardware components.
func (c *Client) GetComponents(ctx context.Context) ([]Component, error) {
	var out struct {
		Components []Component `json:"components"`
	}
	if err := c.gw.GetJSON(ctx, basePath+"/components", &out); err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	return out.Components, nil
}

// StartDiscovery kicks off a hardware discovery sweep. Discovery runs
// asynchronously; poll DiscoveryStatuses to observe it.
func (c *Client) StartDiscovery(ctx context.Context) error {
	if err := c.gw.PostJSON(ctx, basePath+"/discover", struct{}{}, nil); err != nil {
		return fmt.Errorf("starting discovery: %w", err)
	}
	return nil
}

// DiscoveryStatuses reports the state of every discovery sweep.
func (c *Client) DiscoveryStatuses(ctx context.Context) ([]DiscoveryStatus, error) {
	var out []DiscoveryStatus
	if err := c.gw.GetJSON(ctx, basePath+"/discovery-status", &out); err != nil {
		return nil, fmt.Errorf("fetching discovery status: %w", err)
	}
	return out, nil
}
