package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
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
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var coded interface{ ExitCode() int }
	if asExitCoder(err, &coded) {
		return coded.ExitCode()
	}

	if classified, ok := AsClassified(err); ok {
		return a.exitCodeFromClassified(classified)
	}

	return 1
}

// exitCodeFromClassified maps ClassifiedError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromClassified(err *ClassifiedError) int {
	switch err.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryContent, CategoryNotFound:
		return 3 // Content needs fixing
	case CategoryToolchain:
		return 4 // External tool failed
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryReconcile, CategoryInternal:
		return 10 // Internal error
	case CategoryBuild, CategoryFileSystem:
		return 11 // Build error
	case CategoryRuntime:
		return 12 // Runtime error
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if classified, ok := AsClassified(err); ok {
		return a.formatClassified(err, classified)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatClassified renders a single clean line unless verbose output was requested.
func (a *CLIErrorAdapter) formatClassified(outer error, err *ClassifiedError) string {
	var b strings.Builder
	if a.verbose {
		b.WriteString(outer.Error())
		keys := make([]string, 0, len(err.Context()))
		for k := range err.Context() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, err.Context()[k])
		}
	} else {
		b.WriteString("Error: ")
		b.WriteString(err.Message())
		if file, ok := err.Context().GetString("file"); ok {
			b.WriteString(" (")
			b.WriteString(file)
			b.WriteString(")")
		}
	}
	if hint := err.Hint(); hint != "" {
		b.WriteString("\n\n")
		b.WriteString(hint)
	}
	return b.String()
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	if message != "" {
		fmt.Fprintf(a.out, "%s\n", message)
	}
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Category() == CategoryInternal || classified.Category() == CategoryReconcile
	}
	return false
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if classified, ok := AsClassified(err); ok {
		level := a.slogLevelFromSeverity(classified.Severity())
		attrs := []slog.Attr{
			slog.String("category", string(classified.Category())),
		}
		if classified.CanRetry() {
			attrs = append(attrs, slog.Bool("retryable", true))
		}
		if classified.Cause() != nil {
			attrs = append(attrs, slog.String("cause", classified.Cause().Error()))
		}
		a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts ClassifiedError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
