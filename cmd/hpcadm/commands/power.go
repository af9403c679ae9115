package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/power"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// Power returns the power command group.
func Power() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Drive and inspect component power",
	}
	cmd.AddCommand(powerOn())
	cmd.AddCommand(powerOff())
	cmd.AddCommand(powerStatus())
	return cmd
}

func powerOn() *cobra.Command {
	var (
		wf     waitFlags
		doWait bool
	)
	cmd := &cobra.Command{
		Use:   "on xname...",
		Short: "Power components on",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, power.OperationOn, power.StateOn, args, wf, doWait)
		},
	}
	cmd.Flags().BoolVar(&doWait, "wait", false, "wait for components to reach the target state")
	wf.register(cmd)
	return cmd
}

func powerOff() *cobra.Command {
	var (
		wf     waitFlags
		doWait bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "off xname...",
		Short: "Power components off",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := power.OperationOff
			if force {
				op = power.OperationForceOff
			}
			return runTransition(cmd, op, power.StateOff, args, wf, doWait)
		},
	}
	cmd.Flags().BoolVar(&doWait, "wait", false, "wait for components to reach the target state")
	cmd.Flags().BoolVar(&force, "force", false, "cut power without a graceful OS shutdown")
	wf.register(cmd)
	return cmd
}

// runTransition creates a power transition and, when asked, waits for every
// component to report the target state. A partial outcome is printed in full
// before the command fails.
func runTransition(cmd *cobra.Command, operation, target string, xnames []string, wf waitFlags, doWait bool) error {
	ctx := cmd.Context()

	gw, err := newGateway()
	if err != nil {
		return err
	}
	client := power.NewClient(gw)

	creation, err := client.CreateTransition(ctx, operation, xnames)
	if err != nil {
		return err
	}
	cmd.Printf("transition %s created (%s, %d components)\n",
		creation.TransitionID, operation, len(xnames))

	if !doWait {
		return nil
	}

	timeout, poll, retries := wf.resolve()
	opts := []wait.Option{wait.WithPollInterval(poll), wait.WithRetries(retries)}

	store, op := beginOperation(ctx, journal.KindPower, fmt.Sprintf("power %s", operation))
	if store != nil {
		defer store.Close()
		opts = append(opts, saveMemberStates(ctx, store, op.ID))
	}

	result := power.WaitForStates(ctx, client, xnames, target, timeout, opts...)
	printResult(cmd, result)

	if store != nil {
		finishWait(ctx, store, op, result, len(xnames))
	}

	if !result.AllCompleted() {
		return fmt.Errorf("%d of %d components did not reach %s",
			len(xnames)-len(result.Completed), len(xnames), target)
	}
	return nil
}

func powerStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status xname...",
		Short: "Show the current power state of components",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := newGateway()
			if err != nil {
				return err
			}
			client := power.NewClient(gw)

			var errs []error
			for _, xname := range args {
				ps, err := client.GetPowerState(cmd.Context(), xname)
				if err != nil {
					cmd.Printf("%-24s %s\n", xname, power.StateUndefined)
					errs = append(errs, err)
					continue
				}
				cmd.Printf("%-24s %s\n", xname, ps.State)
			}
			return errors.Join(errs...)
		},
	}
}
