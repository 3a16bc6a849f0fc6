// Package ui renders nestctl output in the terminal.
//
// One-shot commands (status, devices, set-temp, away, ...) print through a
// Printer: a Header banner, status tables built with lipgloss/table, and
// success or failure Result boxes. Failure boxes take their troubleshooting
// tips from nest.Hint, so every error kind gets the same advice wherever it
// surfaces.
//
// The watch command runs a Bubble Tea program around WatchModel. The model
// does not talk to Nest itself; the command runs nest.Client.Watch in a
// goroutine and sends UpdateMsg, ErrorMsg and finally DoneMsg into the
// program:
//
//	model := ui.NewWatchModel(categories, client.Waiting, cancel)
//	p := tea.NewProgram(model)
//	go func() {
//	    err := client.Watch(ctx, opts, func(u *nest.Update) error {
//	        p.Send(ui.UpdateMsg{Update: u, At: time.Now()})
//	        return nil
//	    })
//	    p.Send(ui.DoneMsg{Err: err})
//	}()
//	_, err := p.Run()
//
// When stdout is not a terminal, or --plain is given, the command prints
// FormatUpdate lines instead.
//
// # Logging
//
// zap logging stays silent unless --log-level or NESTCTL_LOG_LEVEL is set,
// so rendered output is not interleaved with log lines.
package ui
