package parallel

import (
	"context"
	"sync"
)

// Task represents a function to be executed in parallel
type Task func(ctx context.Context) (any, error)

// Result holds the result and error from a parallel task execution
type Result struct {
	Value any
	Error error
}

// Results holds the map of results from parallel execution
type Results map[string]Result

// Builder collects keyed tasks and runs them concurrently, one goroutine per
// task. The relay uses it to probe every configured backend at once.
type Builder struct {
	tasks map[string]Task
}

// NewBuilder creates a new parallel builder
func NewBuilder() *Builder {
	return &Builder{
		tasks: make(map[string]Task),
	}
}

// Add adds a keyed task to be executed in parallel
func (b *Builder) Add(key string, task Task) *Builder {
	b.tasks[key] = task
	return b
}

// Run executes all tasks in parallel and returns results keyed by their original keys
func (b *Builder) Run(ctx context.Context) Results {
	if len(b.tasks) == 0 {
		return Results{}
	}

	results := make(Results, len(b.tasks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for key, task := range b.tasks {
		wg.Add(1)
		go func(k string, t Task) {
			defer wg.Done()
			value, err := t(ctx)

			mu.Lock()
			results[k] = Result{Value: value, Error: err}
			mu.Unlock()
		}(key, task)
	}

	wg.Wait()
	return results
}
