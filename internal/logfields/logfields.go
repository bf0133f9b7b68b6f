package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyEntry      = "entry"
	KeyPath       = "path"
	KeyComponent  = "component"
	KeyDurationMS = "duration_ms"
	KeyPort       = "port"
	KeyBuildID    = "build_id"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Entry(name string) slog.Attr     { return slog.String(KeyEntry, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Component(n string) slog.Attr    { return slog.String(KeyComponent, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
