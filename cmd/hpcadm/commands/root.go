// Package commands wires the hpcadm command tree: component power control,
// image build plans, hardware discovery, configuration sessions, staged
// shutdown/startup sequences and the operation journal, all sharing one
// gateway client configuration.
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpcadm/hpcadm/internal/config"
	"github.com/hpcadm/hpcadm/internal/gateway"
	"github.com/hpcadm/hpcadm/internal/logger"
	"github.com/hpcadm/hpcadm/internal/wait"
)

var (
	flagConfig    string
	flagGateway   string
	flagTokenFile string
	flagLogLevel  string
	flagLogFormat string

	// cfg is loaded by the root command's PersistentPreRunE before any
	// subcommand runs.
	cfg *config.Config
)

// Root returns the hpcadm root command with all subcommands attached.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hpcadm",
		Short: "Administrative toolkit for the cluster management plane",
		Long: `hpcadm drives the cluster management services: component power
transitions, image build plans, hardware discovery, configuration
sessions and staged shutdown/startup sequences. Long-running operations
are polled until they settle and recorded in a local journal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setup()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file to use instead of the default search paths")
	pf.StringVar(&flagGateway, "gateway", "", "gateway base URL (overrides config)")
	pf.StringVar(&flagTokenFile, "token-file", "", "file holding the gateway bearer token (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", `log format: "text" or "json" (overrides config)`)

	cmd.AddCommand(Power())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Discover())
	cmd.AddCommand(Sessions())
	cmd.AddCommand(Shutdown())
	cmd.AddCommand(Startup())
	cmd.AddCommand(History())
	cmd.AddCommand(Version())

	return cmd
}

// setup loads configuration and initializes logging before any subcommand
// runs. Flag values win over config files.
func setup() error {
	var (
		loaded *config.Config
		err    error
	)
	if flagConfig != "" {
		// An explicitly named config file must exist; the default search
		// paths may not.
		if _, statErr := os.Stat(flagConfig); statErr != nil {
			return fmt.Errorf("config file %s: %w", flagConfig, statErr)
		}
		loaded, err = config.Load(flagConfig, "")
	} else {
		loaded, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	applyOverrides(loaded)
	cfg = loaded

	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

// applyOverrides overlays the persistent flag values onto a loaded config.
func applyOverrides(loaded *config.Config) {
	if flagGateway != "" {
		loaded.Gateway.BaseURL = flagGateway
	}
	if flagTokenFile != "" {
		loaded.Gateway.TokenPath = flagTokenFile
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		loaded.Log.Format = flagLogFormat
	}
}

// newGateway builds the shared gateway client from the loaded config.
func newGateway() (*gateway.Client, error) {
	return gateway.New(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		TokenPath: cfg.Gateway.TokenPath,
		Timeout:   cfg.Gateway.Timeout(),
	})
}

// waitFlags are the per-command overrides for the wait defaults in the
// config file. Zero values defer to the config.
type waitFlags struct {
	timeout      time.Duration
	pollInterval time.Duration
	retries      int
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "overall wait deadline (0 = config default)")
	cmd.Flags().DurationVar(&f.pollInterval, "poll-interval", 0, "delay between polling rounds (0 = config default)")
	cmd.Flags().IntVar(&f.retries, "retries", -1, "extra timeout windows after the first (-1 = config default)")
}

func (f *waitFlags) resolve() (timeout, poll time.Duration, retries int) {
	timeout = f.timeout
	if timeout == 0 {
		timeout = cfg.Wait.Timeout()
	}
	poll = f.pollInterval
	if poll == 0 {
		poll = cfg.Wait.PollInterval()
	}
	retries = f.retries
	if retries < 0 {
		retries = cfg.Wait.Retries
	}
	return timeout, poll, retries
}

// printResult writes the partitioned outcome of a group wait, one line per
// non-empty partition.
func printResult(cmd *cobra.Command, result *wait.Result) {
	if names := wait.Names(result.Completed); len(names) > 0 {
		cmd.Printf("completed: %s\n", strings.Join(names, ", "))
	}
	if names := wait.Names(result.Failed); len(names) > 0 {
		cmd.Printf("failed:    %s\n", strings.Join(names, ", "))
	}
	if names := wait.Names(result.Pending); len(names) > 0 {
		cmd.Printf("pending:   %s\n", strings.Join(names, ", "))
	}
	if names := wait.Names(result.Blocked); len(names) > 0 {
		cmd.Printf("blocked:   %s\n", strings.Join(names, ", "))
	}
}
