package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/sessions"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// Sessions returns the sessions command group.
func Sessions() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Work with configuration sessions",
	}
	cmd.AddCommand(sessionsWait())
	return cmd
}

func sessionsWait() *cobra.Command {
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "wait name...",
		Short: "Wait for configuration sessions to finish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gw, err := newGateway()
			if err != nil {
				return err
			}
			client := sessions.NewClient(gw)

			timeout, poll, retries := wf.resolve()
			opts := []wait.Option{wait.WithPollInterval(poll), wait.WithRetries(retries)}

			store, op := beginOperation(ctx, journal.KindSessions,
				fmt.Sprintf("wait for %d sessions", len(args)))
			if store != nil {
				defer store.Close()
				opts = append(opts, saveMemberStates(ctx, store, op.ID))
			}

			result := sessions.WaitForSessions(ctx, client, args, timeout, opts...)
			printResult(cmd, result)

			if store != nil {
				finishWait(ctx, store, op, result, len(args))
			}

			if !result.AllCompleted() {
				return fmt.Errorf("%d of %d sessions did not succeed",
					len(args)-len(result.Completed), len(args))
			}
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}
