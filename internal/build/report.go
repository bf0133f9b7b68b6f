package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mdxbuilder/internal/metrics"
)

// ReportFile is the name of the persisted report in the cache directory.
const ReportFile = "build-report.json"

// Outcome is the final result of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report captures one build run.
type Report struct {
	mu sync.Mutex

	BuildID        string
	Start          time.Time
	End            time.Time
	Entries        []string
	SSG            bool
	Strict         bool
	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult
	Errors         []error
	Warnings       []error
	Outcome        Outcome
}

// NewReport starts a report with a fresh build ID.
func NewReport() *Report {
	return &Report{
		BuildID:        uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
	}
}

// recordStage stores a stage outcome and forwards it to recorder.
func (r *Report) recordStage(stage StageName, d time.Duration, res StageResult, err error, recorder metrics.Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurations[stage] = d
	r.StageResults[stage] = res
	switch res {
	case StageResultWarning:
		r.Warnings = append(r.Warnings, err)
	case StageResultFatal, StageResultCanceled:
		r.Errors = append(r.Errors, err)
	}
	recorder.ObserveStageDuration(string(stage), d)
	switch res {
	case StageResultSuccess:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultWarning:
		recorder.IncStageResult(string(stage), metrics.ResultWarning)
	case StageResultFatal:
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	}
}

// finish sets the end time and derives the outcome.
func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	switch {
	case len(r.Errors) > 0:
		r.Outcome = OutcomeFailed
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				break
			}
		}
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s entries=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.BuildID, len(r.Entries), r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

// reportJSON mirrors Report with errors as strings.
type reportJSON struct {
	BuildID        string            `json:"build_id"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Entries        []string          `json:"entries"`
	SSG            bool              `json:"ssg"`
	Strict         bool              `json:"strict"`
	StageDurations map[string]int64  `json:"stage_durations_ms"`
	StageResults   map[string]string `json:"stage_results"`
	Errors         []string          `json:"errors"`
	Warnings       []string          `json:"warnings"`
	Outcome        string            `json:"outcome"`
}

// MarshalJSON encodes the report with durations in milliseconds.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := reportJSON{
		BuildID:        r.BuildID,
		Start:          r.Start,
		End:            r.End,
		Entries:        r.Entries,
		SSG:            r.SSG,
		Strict:         r.Strict,
		StageDurations: make(map[string]int64, len(r.StageDurations)),
		StageResults:   make(map[string]string, len(r.StageResults)),
		Errors:         make([]string, 0, len(r.Errors)),
		Warnings:       make([]string, 0, len(r.Warnings)),
		Outcome:        string(r.Outcome),
	}
	if out.Entries == nil {
		out.Entries = []string{}
	}
	for k, v := range r.StageDurations {
		out.StageDurations[string(k)] = v.Milliseconds()
	}
	for k, v := range r.StageResults {
		out.StageResults[string(k)] = string(v)
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return json.Marshal(out)
}

// Persist writes the report atomically into dir.
func (r *Report) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir for report: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
