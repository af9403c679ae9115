package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/hpcadm/hpcadm/internal/cron"
	"github.com/hpcadm/hpcadm/internal/inventory"
	"github.com/hpcadm/hpcadm/internal/power"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// Builder assembles the staged power sequences from the service clients.
// Cron and Inventory are optional; their stages are omitted when unset.
type Builder struct {
	Power        *power.Client
	Locks        *power.TransitionLocks
	Inventory    *inventory.Client
	Cron         *cron.Client
	CronJob      string // scheduler job to quiesce across a shutdown
	Timeout      time.Duration
	PollInterval time.Duration
	Retries      int
}

// Shutdown builds the full shutdown sequence: quiesce the scheduler, then
// power off compute nodes, then management nodes. The power stages are
// destructive.
func (b *Builder) Shutdown(compute, mgmt []string) Sequence {
	seq := Sequence{Name: "shutdown"}

	if b.Cron != nil && b.CronJob != "" {
		seq.Stages = append(seq.Stages, Stage{
			Name: "suspend scheduler",
			Work: []Work{b.suspendWork(true)},
		})
	}
	if len(compute) > 0 {
		seq.Stages = append(seq.Stages, Stage{
			Name:        "power off compute",
			Destructive: true,
			Work:        []Work{b.transitionWork("compute nodes", power.OperationOff, power.StateOff, compute)},
		})
	}
	if len(mgmt) > 0 {
		seq.Stages = append(seq.Stages, Stage{
			Name:        "power off management",
			Destructive: true,
			Work:        []Work{b.transitionWork("management nodes", power.OperationOff, power.StateOff, mgmt)},
		})
	}
	return seq
}

// Startup builds the reverse sequence: power on management nodes, then
// compute nodes, re-run hardware discovery, and resume the scheduler.
func (b *Builder) Startup(compute, mgmt []string) Sequence {
	seq := Sequence{Name: "startup"}

	if len(mgmt) > 0 {
		seq.Stages = append(seq.Stages, Stage{
			Name: "power on management",
			Work: []Work{b.transitionWork("management nodes", power.OperationOn, power.StateOn, mgmt)},
		})
	}
	if len(compute) > 0 {
		seq.Stages = append(seq.Stages, Stage{
			Name: "power on compute",
			Work: []Work{b.transitionWork("compute nodes", power.OperationOn, power.StateOn, compute)},
		})
	}
	if b.Inventory != nil {
		seq.Stages = append(seq.Stages, Stage{
			Name: "rediscover hardware",
			Work: []Work{b.discoveryWork()},
		})
	}
	if b.Cron != nil && b.CronJob != "" {
		seq.Stages = append(seq.Stages, Stage{
			Name: "resume scheduler",
			Work: []Work{b.suspendWork(false)},
		})
	}
	return seq
}

// transitionWork powers the named set of components to the target state and
// waits for every one of them to report it.
func (b *Builder) transitionWork(name, operation, target string, xnames []string) Work {
	return Work{
		Name: name,
		Run: func(ctx context.Context) error {
			if b.Locks != nil {
				b.Locks.LockAll(xnames)
				defer b.Locks.UnlockAll(xnames)
			}

			if _, err := b.Power.CreateTransition(ctx, operation, xnames); err != nil {
				return err
			}

			res := power.WaitForStates(ctx, b.Power, xnames, target, b.Timeout,
				wait.WithPollInterval(b.PollInterval))
			if !res.AllCompleted() {
				return fmt.Errorf("%d of %d components did not reach %s",
					len(xnames)-len(res.Completed), len(xnames), target)
			}
			return nil
		},
	}
}

// suspendWork flips the scheduler job's suspend flag.
func (b *Builder) suspendWork(suspend bool) Work {
	name := fmt.Sprintf("resume %s", b.CronJob)
	if suspend {
		name = fmt.Sprintf("suspend %s", b.CronJob)
	}
	return Work{
		Name: name,
		Run: func(ctx context.Context) error {
			return b.Cron.SetSuspended(ctx, b.CronJob, suspend)
		},
	}
}

// discoveryWork triggers a discovery sweep and waits for it to complete,
// re-triggering on each retry window.
func (b *Builder) discoveryWork() Work {
	return Work{
		Name: "hardware discovery",
		Run: func(ctx context.Context) error {
			if err := b.Inventory.StartDiscovery(ctx); err != nil {
				return err
			}
			if !inventory.WaitForDiscovery(ctx, b.Inventory, b.Timeout, b.Retries,
				wait.WithPollInterval(b.PollInterval)) {
				return fmt.Errorf("hardware discovery did not complete")
			}
			return nil
		},
	}
}
