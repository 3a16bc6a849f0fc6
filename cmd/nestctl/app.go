package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/logging"
	"github.com/muurk/nestctl/internal/nest"
	"github.com/muurk/nestctl/internal/ui"
)

const (
	usernameEnvVar = "NEST_USERNAME"
	passwordEnvVar = "NEST_PASSWORD"
)

// Global flags
var (
	username     string
	password     string
	configPath   string
	logLevel     string
	userAgent    string
	outputFormat string
)

// Loaded by setup before any command runs
var (
	prefs     *config.Preferences
	prefsPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "Nest account email (or "+usernameEnvVar+")")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Nest account password (or "+passwordEnvVar+", or prompt)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: silent)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "User-Agent sent to Nest")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format (table, compact, json)")
}

// setup loads preferences and initializes logging for every command
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.GetConfigPath()
		if err != nil {
			return err
		}
	}

	loaded, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	prefs, prefsPath = loaded, path

	level := logLevel
	if level == "" {
		level = prefs.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	if outputFormat == "" {
		outputFormat = prefs.Format
	}
	if outputFormat == "" {
		outputFormat = config.FormatTable
	}
	for _, f := range config.Formats {
		if outputFormat == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", outputFormat, strings.Join(config.Formats, ", "))
}

// newClient builds a client from flags and preferences
func newClient() *nest.Client {
	client := nest.NewClient()
	client.SetLoginURL(prefs.LoginURL)
	agent := userAgent
	if agent == "" {
		agent = prefs.UserAgent
	}
	client.SetUserAgent(agent)
	return client
}

// connect logs in and fetches the full status, which every Nest command needs
func connect(cmd *cobra.Command) (*nest.Client, nest.Snapshot, error) {
	user := username
	if user == "" {
		user = prefs.Username
	}
	if user == "" {
		user = os.Getenv(usernameEnvVar)
	}
	if user == "" {
		return nil, nil, fmt.Errorf("no username: use --username, set %s, or add username to %s", usernameEnvVar, prefsPath)
	}

	pass, err := readPassword(cmd)
	if err != nil {
		return nil, nil, err
	}

	client := newClient()
	ctx := cmd.Context()
	if _, err := client.Login(ctx, user, pass); err != nil {
		return nil, nil, err
	}

	snapshot, err := client.FetchStatus(ctx)
	if err != nil {
		return nil, nil, err
	}

	return client, snapshot, nil
}

// readPassword takes the password from the flag, the environment, or a
// terminal prompt, in that order
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	if env := os.Getenv(passwordEnvVar); env != "" {
		return env, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password: use --password or set %s", passwordEnvVar)
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Nest password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// rememberDevices stamps LastSeen for listed devices. Only the read-only
// listing commands call it. Failing to write the config never fails the
// command.
func rememberDevices(ids []string) {
	if len(ids) == 0 {
		return
	}
	prefs.UpdateDeviceLastSeen(ids, time.Now())
	if err := prefs.SaveTo(prefsPath); err != nil {
		logging.Warn("Failed to update config", zap.String("path", prefsPath), zap.Error(err))
	}
}

// nicknames returns device id → nickname for every device that has one
func nicknames() map[string]string {
	out := map[string]string{}
	for id, d := range prefs.Devices {
		if d != nil && d.Nickname != "" {
			out[id] = d.Nickname
		}
	}
	return out
}

// report prints the outcome of a change in the selected format
func report(cmd *cobra.Command, title string, details map[string]string) error {
	out := cmd.OutOrStdout()
	switch outputFormat {
	case config.FormatJSON:
		doc := map[string]any{"result": title, "details": details}
		return printJSON(out, doc)
	case config.FormatCompact:
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, strings.ToLower(k)+"="+details[k])
		}
		_, err := fmt.Fprintf(out, "%s: %s\n", title, strings.Join(parts, " "))
		return err
	default:
		ui.NewPrinter(out).PrintSuccess(title, details)
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
