// Nestctl is a command-line client for Nest thermostats.
//
// It logs in with a Nest account, reads the status of every thermostat and
// structure on it, changes target temperature, away state, fan mode and
// heat/cool mode, and follows live changes through the subscription
// long-poll.
//
// Usage:
//
//	nestctl [command] [flags]
//
// See 'nestctl --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/nestctl/internal/logging"
	"github.com/muurk/nestctl/internal/nest"
	"github.com/muurk/nestctl/internal/ui"
	"github.com/muurk/nestctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints Nest failures in a result box and anything else
// (bad flags, config problems) as a plain line.
func reportError(err error) {
	var nestErr *nest.Error
	if errors.As(err, &nestErr) && ui.IsTerminal() {
		ui.NewPrinter(os.Stderr).PrintError("Command failed", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", nest.ShortMessage(err))
	if hint := nest.Hint(err); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nestctl",
	Short: "Nest thermostat command-line client",
	Long: `A command-line client for Nest thermostats using the Nest mobile API.

Reads thermostat and structure status, changes target temperature, away
state, fan mode and heat/cool mode, and follows live changes.

The account password is never stored. Pass it with --password, set
NEST_PASSWORD, or enter it at the prompt.`,
	Version: version.Version,
	Example: `  # Show every thermostat
  nestctl status --username me@example.com

  # Set the first thermostat to 21°C
  nestctl set-temp 21

  # Follow live changes
  nestctl watch --category shared --category energy_latest`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), version.Get())
		}
		info := version.Get()
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "nestctl %s (%s, %s)\n", version.Full(), info.GoVersion, info.Platform)
		return err
	},
}
