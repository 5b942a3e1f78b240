// Package logging provides structured logging for PulseBridge.
//
// It wraps log/slog with configuration-driven level, format, and output
// selection, plus default service/version attributes on every record.
// Components receive a *Logger (usually narrowed with With) rather than
// configuring their own handlers.
package logging
