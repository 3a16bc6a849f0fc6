// Package logging provides structured logging for nestctl.
//
// This package wraps a zap logger with convenience functions used by the Nest
// client and the CLI. The logger is silent until Initialize is called with a
// level or NESTCTL_LOG_LEVEL is set, so the CLI's rendered output stays clean.
//
// # Log Levels
//
//   - Debug: request/response traces (headers with Authorization redacted)
//   - Info: status fetches, subscription updates, mutations sent
//   - Warn: empty status responses, HTTP errors, malformed long-poll replies
//   - Error: failures the caller will surface
//
// # Structured Logging
//
//	logging.Info("Status fetched",
//	    zap.String("user_id", "12345"),
//	    zap.Int("devices", 2),
//	)
//
// Logs go to stderr in console format.
package logging
