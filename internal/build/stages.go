package build

import (
	"context"
	"fmt"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageDependencies      StageName = "dependencies"
	StageReset             StageName = "reset"
	StageDiscoverEntries   StageName = "discover_entries"
	StageGenerateEntries   StageName = "generate_entries"
	StageCSS               StageName = "css"
	StageServerBundle      StageName = "server_bundle"
	StageClientBundle      StageName = "client_bundle"
	StageServerRender      StageName = "server_render"
	StageReconcile         StageName = "reconcile"
	StageGenerateHTML      StageName = "generate_html"
	StageInjectFrontmatter StageName = "inject_frontmatter"
	StageLayerAssets       StageName = "layer_assets"
)

// Stage is a discrete unit of work in the build.
type Stage func(ctx context.Context, st *State) error

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the failed stage and cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Step is a group of stages. Stages within a step run concurrently; the
// step completes when all of them have.
type Step []StageDef

// Pipeline is a fluent builder for ordered steps.
type Pipeline struct{ steps []Step }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{steps: make([]Step, 0, 12)} }

// Add appends a single-stage step.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.steps = append(p.steps, Step{{Name: name, Fn: fn}})
	return p
}

// AddIf appends a single-stage step only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Concurrent appends one step running all defs together.
func (p *Pipeline) Concurrent(defs ...StageDef) *Pipeline {
	if len(defs) > 0 {
		p.steps = append(p.steps, Step(defs))
	}
	return p
}

// Build returns a copy of the steps.
func (p *Pipeline) Build() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Names flattens the pipeline into stage names.
func (p *Pipeline) Names() []StageName {
	var names []StageName
	for _, step := range p.steps {
		for _, def := range step {
			names = append(names, def.Name)
		}
	}
	return names
}
