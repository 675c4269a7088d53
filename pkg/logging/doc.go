// Package logging provides structured logging configuration for mqfacade.
//
// This package wraps log/slog so every component logs the same way. It
// supports configurable log levels and three output formats.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatPretty,
//	})
//
//	logger.Info("server started", "port", 1892)
//	logger.With("component", "pool").Warn("sub-pool install failed", "error", err)
//
// # Output Formats
//
//   - text: slog key=value lines
//   - json: one JSON object per line for log aggregation
//   - pretty: colorized terminal output
//
// Components accept a *slog.Logger through an option. If none is given they
// use logging.Nop().
package logging
