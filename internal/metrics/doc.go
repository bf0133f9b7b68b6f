// Package metrics provides build and dev-loop observability hooks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	orch := build.NewOrchestrator(cfg, deps) // uses metrics.NoopRecorder{}
//
// The dev server swaps in a PrometheusRecorder bound to a registry and
// exposes that registry through HTTPHandler.
package metrics
