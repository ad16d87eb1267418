package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

// Names used by the example workflow.
const (
	StepScale  = "data_step"
	StepAction = "action1"
)

// ExampleState returns a state holding a size x size grid of ones, stored
// row-major under "grid".
func ExampleState(size int) state.State {
	grid := make([]float64, size*size)
	for i := range grid {
		grid[i] = 1
	}
	return state.New(map[string]any{"size": size, "grid": grid})
}

// Grid reads the example grid back out of data. Checkpoint codecs turn the
// typed slice into []any, so both forms are accepted.
func Grid(data state.State) ([]float64, error) {
	raw, ok := data.Get("grid")
	if !ok {
		return nil, fmt.Errorf("state has no grid")
	}

	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, len(v))
		for i, cell := range v {
			f, ok := cell.(float64)
			if !ok {
				return nil, fmt.Errorf("grid cell %d is %T, not a number", i, cell)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("grid is %T", raw)
	}
}

// Mean returns the average grid cell.
func Mean(data state.State) (float64, error) {
	grid, err := Grid(data)
	if err != nil {
		return 0, err
	}
	if len(grid) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range grid {
		sum += v
	}
	return sum / float64(len(grid)), nil
}

// RegisterExample installs the example workflow on m:
//
//   - data_step scales every grid cell by its factor argument
//   - action1 is checkpointed business logic committing data_step with 9
//   - mean_fast_1 and mean_fast_2 report the grid mean in parallel
//   - mean_slow reports it afterwards
//
// Reports go to logger at info level.
func RegisterExample(m *model.Model[state.State], logger *slog.Logger) {
	m.RegisterDataModifier(StepScale, func(_ context.Context, data state.State, args ...any) (state.State, error) {
		if len(args) != 1 {
			return data, fmt.Errorf("%s takes a factor", StepScale)
		}
		factor, err := toFloat(args[0])
		if err != nil {
			return data, err
		}

		grid, err := Grid(data)
		if err != nil {
			return data, err
		}
		scaled := make([]float64, len(grid))
		for i, v := range grid {
			scaled[i] = v * factor
		}
		return data.Set("grid", scaled), nil
	})

	m.RegisterBusinessLogic(StepAction, func(ctx context.Context, data state.State, commit model.CommitFunc[state.State], _ ...any) (any, error) {
		// edits to data are discarded; commits are what count
		data.Data["grid"] = []float64{}
		if _, err := commit(ctx, StepScale, 9.0); err != nil {
			return nil, err
		}
		return data, nil
	})
	m.FlagCheckpoint(StepAction)

	report := func(label string) model.Analysis[state.State] {
		return func(_ context.Context, data state.State, history model.Ledger[state.State]) error {
			mean, err := Mean(data)
			if err != nil {
				return err
			}
			last, _ := history.Last()
			logger.Info("analysis", "report", label, "step", last.Version.String(), "mean", mean)
			return nil
		}
	}

	m.RegisterAnalysis("mean_fast_1", report("fast 1"))
	m.FlagParallelizable("mean_fast_1")
	m.RegisterAnalysis("mean_fast_2", report("fast 2"))
	m.FlagParallelizable("mean_fast_2")
	m.RegisterAnalysis("mean_slow", report("slow"))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("factor must be a number, got %T", v)
	}
}
