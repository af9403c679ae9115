package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/journal"
)

// History returns the journal inspection command.
func History() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [operation-id]",
		Short: "Show recorded operations from the journal",
		Long: `List recent operations from the local journal, newest first. Given an
operation ID, show that operation and the per-member states it recorded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store := openJournal(ctx)
			if store == nil {
				return errors.New("journal unavailable")
			}
			defer store.Close()

			if len(args) == 1 {
				return showOperation(cmd, store, args[0])
			}

			ops, err := store.ListOperations(ctx, limit)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				cmd.Println("no operations recorded")
				return nil
			}
			for _, op := range ops {
				cmd.Printf("%s  %-9s %-9s %s  %s\n",
					op.ID, op.Kind, op.Status,
					op.StartedAt.Local().Format("2006-01-02 15:04:05"), op.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of operations to list (0 = all)")
	return cmd
}

func showOperation(cmd *cobra.Command, store journal.Store, id string) error {
	ctx := cmd.Context()

	op, err := store.GetOperation(ctx, id)
	if err != nil {
		return err
	}
	cmd.Printf("%s %q: %s\n", op.Kind, op.Name, op.Status)
	cmd.Printf("started:  %s\n", op.StartedAt.Local().Format(time.RFC3339))
	if op.FinishedAt != nil {
		cmd.Printf("finished: %s\n", op.FinishedAt.Local().Format(time.RFC3339))
	}
	if op.Detail != "" {
		cmd.Printf("detail:   %s\n", op.Detail)
	}

	members, err := store.Members(ctx, op.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Detail != "" {
			cmd.Printf("  %-24s %-10s %s\n", m.Member, m.State, m.Detail)
			continue
		}
		cmd.Printf("  %-24s %s\n", m.Member, m.State)
	}
	return nil
}
