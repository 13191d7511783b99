package commands

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "livefacts",
		Short: "Live fact-checking of spoken statements",
		Long: `livefacts turns a live speech transcript into statements and fact-checks
each one as soon as it is complete.

Statements are classified as checkable or not, checkable ones get a verdict
(true, dubious or obviously-fake), and obviously fake ones raise an alert.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(
		NewServeCmd(),
		NewCheckCmd(),
		NewReplayCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
