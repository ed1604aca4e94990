// Package logging builds the structured slog logger used across Callisto.
//
// Components receive a *slog.Logger and attach their own component field.
// Client identifiers are logged only in hashed form; the raw identifier must
// never reach a log line, mirroring the on-disk anonymization guarantee.
package logging
