package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/nest"
	"github.com/muurk/nestctl/internal/ui"
)

// Watch command flags
var (
	watchCategories []string
	watchDelay      time.Duration
	watchPlain      bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVarP(&watchCategories, "category", "c", nil, "Category to subscribe to, repeatable (default: from config, else shared)")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 0, "Pause between long-polls (default: from config, else 2s)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print one line per update instead of the live view")
}

// watchCmd follows changes through the subscription long-poll
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live changes",
	Long: `Subscribe to changes and show each one as it arrives.

Every round is a long-poll that the service holds open for up to 60
seconds; it returns early with the first record that changed. The local
copy of the status is updated with each change.

Categories: user, shared, track, device, structure, user_alert_dialog,
user_settings, energy_latest.

When stdout is not a terminal, or with --plain, one line is printed per
round instead of the live view.`,
	Example: `  # Watch shared thermostat state
  nestctl watch

  # Watch several categories
  nestctl watch -c shared -c structure -c energy_latest

  # Log lines for piping
  nestctl watch --plain | tee nest.log`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	categories, err := resolveCategories()
	if err != nil {
		return err
	}
	delay := watchDelay
	if delay <= 0 {
		delay = prefs.WatchDelay()
	}

	client, _, err := connect(cmd)
	if err != nil {
		return err
	}

	if watchPlain || outputFormat == config.FormatJSON || !ui.IsTerminal() {
		return watchPlainText(cmd, client, categories, delay)
	}
	return watchLive(cmd, client, categories, delay)
}

// resolveCategories prefers --category over the config file
func resolveCategories() ([]nest.Category, error) {
	if len(watchCategories) == 0 {
		return prefs.Watch.ParseCategories()
	}
	out := make([]nest.Category, 0, len(watchCategories))
	for _, name := range watchCategories {
		c, err := nest.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func watchPlainText(cmd *cobra.Command, client *nest.Client, categories []nest.Category, delay time.Duration) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	err := client.Watch(cmd.Context(), nest.WatchOptions{
		Categories: categories,
		Delay:      delay,
		OnError: func(err error) {
			fmt.Fprintf(errOut, "%s %s\n", time.Now().Format("15:04:05"), nest.ShortMessage(err))
		},
	}, func(u *nest.Update) error {
		if outputFormat == config.FormatJSON {
			if u == nil || u.Record == nil {
				return nil
			}
			return printJSON(out, map[string]any{
				"category":  u.Category,
				"id":        u.EntityID,
				"version":   u.Record.Version,
				"timestamp": u.Record.Timestamp,
				"fields":    u.Record.Fields,
			})
		}
		_, err := fmt.Fprintln(out, ui.FormatUpdate(u, time.Now()))
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func watchLive(cmd *cobra.Command, client *nest.Client, categories []nest.Category, delay time.Duration) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := ui.NewWatchModel(categories, client.Waiting, cancel)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))

	go func() {
		err := client.Watch(ctx, nest.WatchOptions{
			Categories: categories,
			Delay:      delay,
			OnError: func(err error) {
				p.Send(ui.ErrorMsg{Err: err, At: time.Now()})
			},
		}, func(u *nest.Update) error {
			p.Send(ui.UpdateMsg{Update: u, At: time.Now()})
			return nil
		})
		p.Send(ui.DoneMsg{Err: err})
	}()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch view error: %w", err)
	}
	if m, ok := final.(ui.WatchModel); ok && m.Err != nil {
		return m.Err
	}
	return nil
}
