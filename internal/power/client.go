package power

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hpcadm/hpcadm/internal/gateway"
)

const basePath = "/power/v1"

// Operations accepted by the transition endpoint.
const (
	OperationOn       = "on"
	OperationOff      = "off"
	OperationForceOff = "force-off"
)

// Power states reported for a component.
const (
	StateOn        = "on"
	StateOff       = "off"
	StateReady     = "ready"
	StateUndefined = "undefined"
)

// Transition requests a power operation over a set of components.
type Transition struct {
	Operation string   `json:"operation"`
	Xnames    []string `json:"xnames"`
}

// TransitionCreation is the service's acknowledgement of a new transition.
type TransitionCreation struct {
	TransitionID uuid.UUID `json:"transitionID"`
	Operation    string    `json:"operation"`
}

// TransitionTask tracks one component within a transition.
type TransitionTask struct {
	Xname  string `json:"xname"`
	Status string `json:"taskStatus"`
	Error  string `json:"taskStatusDescription,omitempty"`
}

// TransitionStatus is the full state of an in-flight or finished transition.
type TransitionStatus struct {
	TransitionID     uuid.UUID        `json:"transitionID"`
	TransitionStatus string           `json:"transitionStatus"`
	Tasks            []TransitionTask `json:"tasks"`
}

// PowerState is the current power state of one component.
type PowerState struct {
	Xname string `json:"xname"`
	State string `json:"powerState"`
}

// Client wraps the power service endpoints.
type Client struct {
	gw *gateway.Client
}

// NewClient builds a power client on top of the shared gateway client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// CreateTransition asks the power service to drive xnames through op.
// The service answers immediately with a transition ID; the actual power
// change completes asynchronously.
func (c *Client) CreateTransition(ctx context.Context, op string, xnames []string) (*TransitionCreation, error) {
	req := Transition{Operation: op, Xnames: xnames}
	var out TransitionCreation
	if err := c.gw.PostJSON(ctx, basePath+"/transitions", req, &out); err != nil {
		return nil, fmt.Errorf("creating %s transition: %w", op, err)
	}
	return &out, nil
}

// GetTransition fetches the status of a transition.
func (c *Client) GetTransition(ctx context.Context, id uuid.UUID) (*TransitionStatus, error) {
	var out TransitionStatus
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/transitions/%s", basePath, id), &out); err != nil {
		return nil, fmt.Errorf("fetching transition %s: %w", id, err)
	}
	return &out, nil
}

// GetPowerState fetches the current power state of one component.
func (c *Client) GetPowerState(ctx context.Context, xname string) (*PowerState, error) {
	var out PowerState
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/power-status/%s", basePath, xname), &out); err != nil {
		return nil, fmt.Errorf("fetching power state of %s: %w", xname, err)
	}
	return &out, nil
}
