package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		return exitCodeFromClassified(classified)
	}
	return 1
}

func exitCodeFromClassified(err *ClassifiedError) int {
	switch err.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7
	case CategoryTransform, CategoryFileSystem, CategoryTask:
		return 11 // Build error
	case CategoryServer, CategoryWatch:
		return 12 // Runtime error
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return classified.Error()
	}
	msg := "Error: " + classified.Message()
	if file, ok := classified.Context().GetString("file"); ok {
		msg += " (" + file + ")"
	}
	if cause := classified.Cause(); cause != nil {
		msg += ": " + cause.Error()
	}
	return msg
}

// HandleError reports err and exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.Report(err)
	a.exit(a.ExitCodeFor(err))
}

// Report logs err and prints its user-facing form.
func (a *CLIErrorAdapter) Report(err error) {
	if err == nil {
		return
	}
	a.logError(err)
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for k, v := range classified.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
}

func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
