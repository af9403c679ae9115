package inventory

import (
	"context"
	"time"

	"github.com/hpcadm/hpcadm/internal/wait"
)

// DiscoveryCondition is satisfied once every discovery sweep reports
// Complete. No sweeps at all means discovery has not started, which is
// not-yet-satisfied rather than an error.
type DiscoveryCondition struct {
	client *Client
}

// NewDiscoveryCondition builds the condition over the given client.
func NewDiscoveryCondition(client *Client) *DiscoveryCondition {
	return &DiscoveryCondition{client: client}
}

// Name implements wait.Condition.
func (c *DiscoveryCondition) Name() string { return "hardware discovery complete" }

// Satisfied implements wait.Condition.
func (c *DiscoveryCondition) Satisfied(ctx context.Context) (bool, error) {
	statuses, err := c.client.DiscoveryStatuses(ctx)
	if err != nil {
		return false, err
	}
	if len(statuses) == 0 {
		return false, nil
	}
	for _, s := range statuses {
		if s.Status != DiscoveryComplete {
			return false, nil
		}
	}
	return true, nil
}

// WaitForDiscovery polls until discovery completes. At each expired deadline
// while retries remain, it re-triggers a discovery sweep before waiting
// through a fresh window — a stuck sweep gets a fresh start instead of the
// wait giving up.
func WaitForDiscovery(ctx context.Context, client *Client, timeout time.Duration, retries int, opts ...wait.Option) bool {
	opts = append(opts,
		wait.WithRetries(retries),
		wait.WithRetryHook(func(ctx context.Context) error {
			return client.StartDiscovery(ctx)
		}),
	)
	w := wait.NewWaiter(NewDiscoveryCondition(client), timeout, opts...)
	return w.Wait(ctx)
}
