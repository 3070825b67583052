// Package async provides utilities for parallel task execution.
//
// This package contains generic helpers for running multiple operations
// concurrently, collecting results, and handling errors. It is used for
// issuing independent node-creation calls concurrently within one deploy.
package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes multiple tasks in parallel and returns the first error
// encountered. All tasks are started concurrently, and the function waits for
// all to complete. If any task returns an error, the first error is returned
// after all tasks finish.
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}

	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			err := task.Func(ctx)
			resultChan <- result{name: task.Name, err: err}
		}()
	}

	var firstError error
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = fmt.Errorf("%s: %w", res.name, res.err)
		}
	}

	return firstError
}

// CollectParallel runs fn once per input concurrently and returns the outputs
// in input order. All calls are awaited before returning; if any call fails,
// the first error is returned along with the partial outputs that did
// succeed (failed slots are left at the zero value). The caller decides what
// to do with partial results.
func CollectParallel[In, Out any](ctx context.Context, inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	outputs := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return outputs, nil
	}

	type result struct {
		index int
		err   error
	}

	resultChan := make(chan result, len(inputs))

	for i, in := range inputs {
		go func() {
			out, err := fn(ctx, in)
			if err == nil {
				outputs[i] = out
			}
			resultChan <- result{index: i, err: err}
		}()
	}

	var firstError error
	for range len(inputs) {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = res.err
		}
	}

	return outputs, firstError
}
