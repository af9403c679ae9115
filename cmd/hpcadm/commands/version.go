package commands

import "github.com/spf13/cobra"

// Version metadata, overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// Version returns the version command.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hpcadm version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("hpcadm %s (%s)\n", version, commit)
		},
	}
}
