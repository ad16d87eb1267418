package workers

import (
	"fmt"
	"slices"
	"strings"
)

// TaskError records one failed item.
type TaskError[T any] struct {
	Index int // position in the items slice passed to Run
	Item  T
	Err   error
}

// ParallelError lists every failed item of a Run, ordered by index.
type ParallelError[T any] struct {
	Errors []TaskError[T]
}

func newParallelError[T any](items []T, failed []indexedError) *ParallelError[T] {
	slices.SortFunc(failed, func(a, b indexedError) int {
		return a.index - b.index
	})

	errs := make([]TaskError[T], len(failed))
	for i, f := range failed {
		errs[i] = TaskError[T]{Index: f.index, Item: items[f.index], Err: f.err}
	}
	return &ParallelError[T]{Errors: errs}
}

// Error summarizes the failures. A single failure is reported verbatim;
// several are grouped by message, most frequent first.
func (e *ParallelError[T]) Error() string {
	if len(e.Errors) == 0 {
		return "parallel execution failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("parallel execution failed: item %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	var order []string
	for _, taskErr := range e.Errors {
		msg := taskErr.Err.Error()
		if counts[msg] == 0 {
			order = append(order, msg)
		}
		counts[msg]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	parts := make([]string, len(order))
	for i, msg := range order {
		if counts[msg] == 1 {
			parts[i] = fmt.Sprintf("'%s' (1 item)", msg)
		} else {
			parts[i] = fmt.Sprintf("'%s' (%d items)", msg, counts[msg])
		}
	}

	return fmt.Sprintf("parallel execution failed: %d items failed with %d error types: %s",
		len(e.Errors), len(order), strings.Join(parts, ", "))
}

// Unwrap exposes every task error to errors.Is and errors.As.
func (e *ParallelError[T]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, taskErr := range e.Errors {
		errs[i] = taskErr.Err
	}
	return errs
}
