package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/ui"
)

var forceInit bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAliasCmd)

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config without asking")
}

// configCmd groups the config file subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the nestctl config file",
	Long: `Manage the nestctl config file.

The file holds the account username, output and watch defaults, and
device nicknames. The password is never written to it.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Example: `  # Create the config with your account email
  nestctl config init --username me@example.com`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(prefsPath); err == nil && !forceInit {
		ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			"A config file already exists at "+prefsPath,
			"Overwrite it?")
		if !ok {
			return nil
		}
	}

	fresh := config.Default()
	fresh.Username = username
	if err := fresh.SaveTo(prefsPath); err != nil {
		return err
	}

	details := map[string]string{"Path": prefsPath}
	if fresh.Username != "" {
		details["Username"] = fresh.Username
	}
	return report(cmd, "Config written", details)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == config.FormatJSON {
			return printJSON(cmd.OutOrStdout(), prefs)
		}
		data, err := yaml.Marshal(prefs)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", prefsPath, data)
		return err
	},
}

var configAliasCmd = &cobra.Command{
	Use:   "alias <device-id> <nickname>",
	Short: "Give a thermostat a nickname",
	Long: `Give a thermostat a nickname that --device accepts in place of its id.
An empty nickname removes it.`,
	Example: `  nestctl config alias 09AA01AC35130BVN hall
  nestctl set-temp 21 --device hall`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigAlias,
}

func runConfigAlias(cmd *cobra.Command, args []string) error {
	id, nickname := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if id == "" {
		return fmt.Errorf("device id must not be empty")
	}
	if other := prefs.ResolveDevice(nickname); nickname != "" && other != nickname && other != id {
		return fmt.Errorf("nickname %q is already used by %s", nickname, other)
	}

	prefs.SetDeviceNickname(id, nickname)
	if err := prefs.SaveTo(prefsPath); err != nil {
		return err
	}

	return report(cmd, "Nickname saved", map[string]string{
		"Device":   id,
		"Nickname": nickname,
	})
}
