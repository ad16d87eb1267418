package model

import (
	"context"

	"github.com/tailored-agentic-units/bulldog/observability"
	"github.com/tailored-agentic-units/bulldog/workers"
)

// analysisRun carries everything one worker needs, so workers never touch
// the Model.
type analysisRun[S Cloneable[S]] struct {
	analysis namedAnalysis[S]
	data     S
	history  Ledger[S]
}

// RunAnalyses runs every registered analysis against the current state and
// history. Analyses flagged parallelizable go to the worker pool first, each
// with its own copies; the rest then run one at a time in registration order.
//
// Analyses are for side effects such as reporting or export and their
// results are not kept. If any parallel analysis fails, the sequential batch
// is skipped and the failures are returned; a failing sequential analysis
// stops the batch.
func (m *Model[S]) RunAnalyses(ctx context.Context) error {
	parallel, sequential := m.registry.partition()

	m.emit(ctx, EventAnalysesStart, observability.LevelVerbose, "model.RunAnalyses", map[string]any{
		"parallel":   len(parallel),
		"sequential": len(sequential),
	})

	if len(parallel) > 0 {
		runs := make([]analysisRun[S], len(parallel))
		for i, a := range parallel {
			runs[i] = analysisRun[S]{analysis: a, data: m.Current(), history: m.History()}
		}

		err := workers.Run(ctx, m.pool, runs, func(ctx context.Context, run analysisRun[S]) error {
			if err := run.analysis.fn(ctx, run.data, run.history); err != nil {
				return &AnalysisError{Name: run.analysis.name, Err: err}
			}
			return nil
		})
		if err != nil {
			return m.analysisFailed(ctx, err)
		}
	}

	for _, a := range sequential {
		if err := a.fn(ctx, m.Current(), m.History()); err != nil {
			return m.analysisFailed(ctx, &AnalysisError{Name: a.name, Err: err})
		}
	}

	m.emit(ctx, EventAnalysesComplete, observability.LevelVerbose, "model.RunAnalyses", map[string]any{
		"parallel":   len(parallel),
		"sequential": len(sequential),
	})

	return nil
}

func (m *Model[S]) analysisFailed(ctx context.Context, err error) error {
	m.emit(ctx, EventAnalysisFailed, observability.LevelError, "model.RunAnalyses", map[string]any{
		"error": err.Error(),
	})
	return err
}
