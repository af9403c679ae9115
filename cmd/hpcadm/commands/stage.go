package commands

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/cron"
	"github.com/hpcadm/hpcadm/internal/inventory"
	"github.com/hpcadm/hpcadm/internal/power"
	"github.com/hpcadm/hpcadm/internal/stage"
)

// Shutdown returns the staged cluster shutdown command.
func Shutdown() *cobra.Command {
	var f stageFlags
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Shut the cluster down in stages",
		Long: `Shut the cluster down in stages: suspend the discovery cron job, power
off compute nodes, then power off management nodes. Destructive stages
prompt for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSequence(cmd, f, func(b *stage.Builder) stage.Sequence {
				return b.Shutdown(f.compute, f.mgmt)
			})
		},
	}
	f.register(cmd)
	return cmd
}

// Startup returns the staged cluster startup command.
func Startup() *cobra.Command {
	var f stageFlags
	cmd := &cobra.Command{
		Use:   "startup",
		Short: "Bring the cluster up in stages",
		Long: `Bring the cluster up in stages: power on management nodes, power on
compute nodes, rediscover hardware, then resume the discovery cron job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSequence(cmd, f, func(b *stage.Builder) stage.Sequence {
				return b.Startup(f.compute, f.mgmt)
			})
		},
	}
	f.register(cmd)
	return cmd
}

type stageFlags struct {
	wf      waitFlags
	compute []string
	mgmt    []string
	cronJob string
	dryRun  bool
	yes     bool
}

func (f *stageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.compute, "compute", nil, "compute node xnames")
	cmd.Flags().StringSliceVar(&f.mgmt, "mgmt", nil, "management node xnames")
	cmd.Flags().StringVar(&f.cronJob, "cron-job", "hardware-discovery", "scheduler job to suspend/resume around the sequence")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the stages without running them")
	cmd.Flags().BoolVar(&f.yes, "yes", false, "do not prompt before destructive stages")
	f.wf.register(cmd)
}

func runSequence(cmd *cobra.Command, f stageFlags, build func(*stage.Builder) stage.Sequence) error {
	ctx := cmd.Context()

	if len(f.compute) == 0 && len(f.mgmt) == 0 {
		return errors.New("no components given: set --compute and/or --mgmt")
	}

	gw, err := newGateway()
	if err != nil {
		return err
	}

	timeout, poll, retries := f.wf.resolve()
	builder := &stage.Builder{
		Power:        power.NewClient(gw),
		Locks:        power.NewTransitionLocks(),
		Inventory:    inventory.NewClient(gw),
		Cron:         cron.NewClient(gw),
		CronJob:      f.cronJob,
		Timeout:      timeout,
		PollInterval: poll,
		Retries:      retries,
	}
	seq := build(builder)

	scfg := stage.Config{
		DryRun:  f.dryRun,
		Confirm: !f.yes,
	}
	if !f.dryRun {
		if store := openJournal(ctx); store != nil {
			defer store.Close()
			scfg.Journal = store
		}
	}

	if scfg.Confirm && !f.dryRun {
		// The prompt handler runs until its context is cancelled; give it
		// one scoped to this sequence so Stop can't block after the run.
		promptCtx, cancel := context.WithCancel(ctx)
		prompts := stage.NewPromptChannel(1, askTerminal(cmd))
		prompts.Start(promptCtx)
		defer func() {
			cancel()
			prompts.Stop()
		}()
		scfg.Prompts = prompts
	}

	results, runErr := stage.NewRunner(scfg).Run(ctx, seq)
	printStageResults(cmd, results)
	return runErr
}

// askTerminal answers confirmation prompts by asking on the command's
// terminal and reading a y/n answer.
func askTerminal(cmd *cobra.Command) stage.AskFunc {
	reader := bufio.NewReader(cmd.InOrStdin())
	return func(_ context.Context, p stage.Prompt) (bool, error) {
		cmd.Printf("%s [y/N]: ", p.Question)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func printStageResults(cmd *cobra.Command, results []stage.StageResult) {
	for _, res := range results {
		switch {
		case res.Skipped:
			cmd.Printf("stage %-28s skipped (%s)\n", res.Stage, res.Reason)
		case len(res.Errors) > 0:
			cmd.Printf("stage %-28s failed (%d of its work items)\n", res.Stage, len(res.Errors))
		default:
			cmd.Printf("stage %-28s ok\n", res.Stage)
		}
	}
}
