// Package pipeline sequences the briefing stages over one core.BriefingState.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"advisorbrief/internal/core"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
)

// Pipeline runs stages in a fixed order. There is no retry and no checkpointing; the
// first failing stage aborts the run.
type Pipeline struct {
	stages   []Stage
	newRunID func() string
}

// New creates a pipeline over stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, newRunID: uuid.NewString}
}

// StageTiming is the wall time of one top-level stage.
type StageTiming struct {
	Name     string        `json:"name" yaml:"name"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result is the outcome of a run. On failure State holds the last good state.
type Result struct {
	RunID    string             `json:"run_id" yaml:"run_id"`
	State    core.BriefingState `json:"state" yaml:"state"`
	Stages   []StageTiming      `json:"stages" yaml:"stages"`
	Duration time.Duration      `json:"duration" yaml:"duration"`
}

// StageNames lists the top-level stages; parallel groups show their members in brackets.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		if group, ok := s.(parallelStage); ok {
			names = append(names, fmt.Sprintf("%s[%s]", group.Name(), strings.Join(group.Members(), ",")))
			continue
		}
		names = append(names, s.Name())
	}
	return names
}

// Run threads state through every stage. A run id is assigned when state has none.
func (p *Pipeline) Run(ctx context.Context, state core.BriefingState) (*Result, error) {
	if state.RunID == "" {
		state.RunID = p.newRunID()
	}
	result := &Result{RunID: state.RunID, State: state}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	if err := state.ValidateIdentity(); err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return result, err
	}

	log := logger.With("run_id", state.RunID)
	log.Info("briefing run started", "client", state.ClientName, "stages", len(p.stages))

	for _, stage := range p.stages {
		stageStart := time.Now()
		out, err := runStage(ctx, stage, result.State)
		result.Stages = append(result.Stages, StageTiming{Name: stage.Name(), Duration: time.Since(stageStart)})
		if err != nil {
			metrics.PipelineRuns.WithLabelValues("failed").Inc()
			log.Error("briefing run aborted", "stage", stage.Name(), "error", err)
			return result, err
		}
		result.State = out
	}

	metrics.PipelineRuns.WithLabelValues("succeeded").Inc()
	log.Info("briefing run finished", "duration", time.Since(start))
	return result, nil
}

// runStage runs one stage, records it and enforces that no populated field is lost.
func runStage(ctx context.Context, stage Stage, in core.BriefingState) (core.BriefingState, error) {
	name := stage.Name()
	start := time.Now()
	logger.Debug("stage started", "run_id", in.RunID, "stage", name)

	out, err := stage.Run(ctx, in)
	if err == nil {
		if lost := out.Regressions(in); len(lost) > 0 {
			err = fmt.Errorf("%w: %s", core.ErrFieldRegression, strings.Join(lost, ", "))
		}
	}
	took := time.Since(start)
	metrics.RecordStage(name, took, err, errorKind(err))
	if err != nil {
		var missing *core.MissingFieldError
		if _, group := stage.(parallelStage); group || errors.As(err, &missing) {
			return in, err
		}
		return in, fmt.Errorf("stage %s: %w", name, err)
	}

	out.RunID = in.RunID
	logger.Debug("stage finished", "run_id", in.RunID, "stage", name, "duration", took)
	return out, nil
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrMissingField):
		return "missing_field"
	case errors.Is(err, core.ErrExternalCall):
		return "external"
	case errors.Is(err, core.ErrFieldRegression):
		return "regression"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "other"
}
