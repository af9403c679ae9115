package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/events"
	"github.com/hpcadm/hpcadm/internal/images"
	"github.com/hpcadm/hpcadm/internal/logger"
	"github.com/hpcadm/hpcadm/internal/plan"
	"github.com/hpcadm/hpcadm/internal/sessions"
	"github.com/hpcadm/hpcadm/internal/tui"
	"github.com/hpcadm/hpcadm/internal/workspace"
)

// Plan returns the plan command group.
func Plan() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate and apply image build plans",
	}
	cmd.AddCommand(planValidate())
	cmd.AddCommand(planApply())
	return cmd
}

func planValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate file",
		Short: "Check a plan file and print its build order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			graph, err := plan.BuildGraph(p)
			if err != nil {
				return err
			}
			order, err := graph.Order()
			if err != nil {
				return err
			}
			cmd.Printf("plan %s: %d images, build order %s\n",
				p.Name, len(p.Images), strings.Join(order, ", "))
			return nil
		},
	}
}

func planApply() *cobra.Command {
	var (
		wf     waitFlags
		dryRun bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "apply file",
		Short: "Build the images in a plan in dependency order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanApply(cmd, args[0], dryRun, watch, wf)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve the build order without building anything")
	cmd.Flags().BoolVar(&watch, "watch", false, "show a live monitor while the plan runs")
	wf.register(cmd)
	return cmd
}

func runPlanApply(cmd *cobra.Command, path string, dryRun, watch bool, wf waitFlags) error {
	ctx := cmd.Context()

	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	gw, err := newGateway()
	if err != nil {
		return err
	}

	timeout, poll, retries := wf.resolve()
	rcfg := plan.RunnerConfig{
		DryRun:       dryRun,
		Timeout:      timeout,
		PollInterval: poll,
		Retries:      retries,
	}
	if !dryRun {
		rcfg.Workspace = workspace.NewManager(workspace.Config{Root: cfg.Workspace.Root})
		if store := openJournal(ctx); store != nil {
			defer store.Close()
			rcfg.Journal = store
		}
	}

	var (
		bus    *events.Bus
		uiDone chan error
	)
	if watch && !dryRun {
		// The monitor owns the terminal while the plan runs; route logs
		// away from it.
		logger.Log.SetOutput(io.Discard)
		defer logger.Log.SetOutput(os.Stderr)

		bus = events.NewBus()
		rcfg.Bus = bus
		uiDone = make(chan error, 1)
		go func() { uiDone <- tui.Run(ctx, bus) }()
	}

	runner := plan.NewRunner(images.NewClient(gw), sessions.NewClient(gw), rcfg)
	summary, runErr := runner.Run(ctx, p)

	if bus != nil {
		// Closing the bus ends the monitor's event stream and shuts it down.
		bus.Close()
		if err := <-uiDone; err != nil {
			logger.Log.WithError(err).Warn("Monitor exited with an error")
		}
	}
	if runErr != nil {
		return runErr
	}

	printSummary(cmd, summary)
	if !summary.Succeeded() {
		return fmt.Errorf("plan %s: %d of %d images not built",
			summary.Plan, len(summary.Order)-len(summary.Completed), len(summary.Order))
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *plan.Summary) {
	if s.DryRun {
		cmd.Printf("plan %s: would build %s\n", s.Plan, strings.Join(s.Order, ", "))
		return
	}
	cmd.Printf("plan %s: %d/%d images built\n", s.Plan, len(s.Completed), len(s.Order))
	if len(s.Failed) > 0 {
		cmd.Printf("failed:  %s\n", strings.Join(s.Failed, ", "))
	}
	if len(s.Blocked) > 0 {
		cmd.Printf("blocked: %s\n", strings.Join(s.Blocked, ", "))
	}
	if len(s.Pending) > 0 {
		cmd.Printf("pending: %s\n", strings.Join(s.Pending, ", "))
	}
	if s.Workspace != "" {
		cmd.Printf("workspace: %s\n", s.Workspace)
	}
}
