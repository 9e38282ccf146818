package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"advisorbrief/internal/core"
)

// Stage is one named step of a briefing run. It reads the fields it requires, makes at
// most one category of external call and returns the extended state.
type Stage interface {
	Name() string
	Run(ctx context.Context, state core.BriefingState) (core.BriefingState, error)
}

// StageFunc is the signature of every stage method in the domain packages.
type StageFunc func(ctx context.Context, state core.BriefingState) (core.BriefingState, error)

type namedStage struct {
	name string
	fn   StageFunc
}

func (s namedStage) Name() string { return s.name }

func (s namedStage) Run(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	return s.fn(ctx, state)
}

// NewStage names a StageFunc.
func NewStage(name string, fn StageFunc) Stage {
	return namedStage{name: name, fn: fn}
}

// parallelStage runs independent stages on the same input.
type parallelStage struct {
	name   string
	stages []Stage
}

// Parallel groups independent stages. They run concurrently on the same input and their
// outputs are merged in declaration order, so the result equals running them in sequence.
// The first failure cancels the others.
func Parallel(name string, stages ...Stage) Stage {
	return parallelStage{name: name, stages: stages}
}

func (p parallelStage) Name() string { return p.name }

// Members returns the names of the grouped stages.
func (p parallelStage) Members() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

func (p parallelStage) Run(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	outputs := make([]core.BriefingState, len(p.stages))

	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range p.stages {
		g.Go(func() error {
			out, err := runStage(gctx, stage, state)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return state, err
	}

	merged := state
	for _, out := range outputs {
		merged = merged.Merge(out)
	}
	return merged, nil
}
