package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/inventory"
	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// Discover returns the discover command.
func Discover() *cobra.Command {
	var (
		wf     waitFlags
		doWait bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Trigger a hardware discovery sweep",
		Long: `Trigger an inventory hardware discovery sweep. With --wait, poll until
every sweep reports complete; each extra retry window re-triggers
discovery first, so a stuck sweep gets a fresh start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			gw, err := newGateway()
			if err != nil {
				return err
			}
			client := inventory.NewClient(gw)

			if !doWait {
				if err := client.StartDiscovery(ctx); err != nil {
					return err
				}
				cmd.Println("discovery started")
				return nil
			}

			timeout, poll, retries := wf.resolve()

			store, op := beginOperation(ctx, journal.KindDiscover, "hardware discovery")
			if store != nil {
				defer store.Close()
			}

			if err := client.StartDiscovery(ctx); err != nil {
				if store != nil {
					finishCondition(ctx, store, op, false, err.Error())
				}
				return err
			}

			ok := inventory.WaitForDiscovery(ctx, client, timeout, retries, wait.WithPollInterval(poll))
			if store != nil {
				detail := "all sweeps complete"
				if !ok {
					detail = "discovery did not complete"
				}
				finishCondition(ctx, store, op, ok, detail)
			}
			if !ok {
				return errors.New("hardware discovery did not complete")
			}
			cmd.Println("discovery complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&doWait, "wait", false, "wait until discovery completes")
	wf.register(cmd)
	return cmd
}
