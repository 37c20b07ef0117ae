// Package logging provides subsystem-tagged structured logging for smartlaunch.
//
// It wraps Go's log/slog so that every record carries a "subsystem" attribute
// and, for errors, an "error" attribute. Output is text by default and JSON
// when configured.
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Bootstrap", "Listening on %s", addr)
//	logging.Warn("Capability", "Falling back to %s", fallbackURL)
//	logging.Error("OAuth", err, "Token exchange failed")
//
// Credentials must never be passed to these functions in clear text. State
// values and session ids should go through TruncateID.
package logging
