package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hpcadm/hpcadm/internal/wait"
)

// ScheduledCondition is satisfied once the job has been scheduled after the
// condition was created. Used after cluster maintenance to confirm the
// scheduler picked periodic jobs back up.
type ScheduledCondition struct {
	JobName string

	client *Client
	since  time.Time
}

// NewScheduledCondition builds the condition; only runs after now count.
func NewScheduledCondition(client *Client, jobName string) *ScheduledCondition {
	return &ScheduledCondition{
		JobName: jobName,
		client:  client,
		since:   time.Now(),
	}
}

// Name implements wait.Condition.
func (c *ScheduledCondition) Name() string {
	return fmt.Sprintf("cron job %s scheduled", c.JobName)
}

// Satisfied implements wait.Condition.
func (c *ScheduledCondition) Satisfied(ctx context.Context) (bool, error) {
	job, err := c.client.GetJob(ctx, c.JobName)
	if err != nil {
		return false, err
	}
	return job.LastScheduleTime != nil && job.LastScheduleTime.After(c.since), nil
}

// BounceHook returns a retry hook that suspends and resumes the job,
// forcing the scheduler to replan its next run.
func BounceHook(client *Client, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.SetSuspended(ctx, name, true); err != nil {
			return err
		}
		return client.SetSuspended(ctx, name, false)
	}
}

// WaitForSchedule polls until the job is scheduled again. At each expired
// deadline while retries remain, the job's suspend flag is bounced before a
// fresh window.
func WaitForSchedule(ctx context.Context, client *Client, jobName string, timeout time.Duration, retries int, opts ...wait.Option) bool {
	cond := NewScheduledCondition(client, jobName)
	opts = append(opts,
		wait.WithRetries(retries),
		wait.WithRetryHook(BounceHook(client, jobName)),
	)
	w := wait.NewWaiter(cond, timeout, opts...)
	return w.Wait(ctx)
}
