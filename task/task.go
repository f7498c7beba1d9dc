// Package task composes lazily evaluated units of work.
//
// A Task does nothing until it is run. Each run yields exactly one value or
// one error. Tasks are chained with Then and Map, and joined with Join and
// Zip, which run their inputs concurrently and fail with the first error any
// of them returns.
package task

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

var ErrNilTask = errors.New("nil task")

// Task is a deferred computation producing a T.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes the task.
func (t Task[T]) Run(ctx context.Context) (T, error) {
	if t == nil {
		var zero T
		return zero, ErrNilTask
	}
	return t(ctx)
}

// Value returns a task that yields v.
func Value[T any](v T) Task[T] {
	return func(context.Context) (T, error) { return v, nil }
}

// Fail returns a task that fails with err.
func Fail[T any](err error) Task[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

// Defer postpones building a task until it is run.
func Defer[T any](build func() Task[T]) Task[T] {
	return func(ctx context.Context) (T, error) {
		return build().Run(ctx)
	}
}

// Func adapts a plain function.
func Func[T any](f func() (T, error)) Task[T] {
	return func(context.Context) (T, error) { return f() }
}

// Then runs t and continues with the task next builds from its value.
func Then[T, U any](t Task[T], next func(T) Task[U]) Task[U] {
	return func(ctx context.Context) (U, error) {
		v, err := t.Run(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return next(v).Run(ctx)
	}
}

// Map transforms the value of t.
func Map[T, U any](t Task[T], f func(T) (U, error)) Task[U] {
	return func(ctx context.Context) (U, error) {
		v, err := t.Run(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return f(v)
	}
}

// Join runs every task concurrently and yields their values in input order.
// The first failure cancels the context shared by the others and is returned
// as is; no partial result is produced.
func Join[T any](tasks []Task[T]) Task[[]T] {
	return func(ctx context.Context) ([]T, error) {
		out := make([]T, len(tasks))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range tasks {
			g.Go(func() error {
				v, err := t.Run(gctx)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Zip runs a and b concurrently and combines their values with f once both
// succeeded.
func Zip[A, B, C any](a Task[A], b Task[B], f func(A, B) (C, error)) Task[C] {
	return func(ctx context.Context) (C, error) {
		var av A
		var bv B
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			av, err = a.Run(gctx)
			return err
		})
		g.Go(func() (err error) {
			bv, err = b.Run(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			var zero C
			return zero, err
		}
		return f(av, bv)
	}
}

// Future is a task that has been started.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Start runs t in its own goroutine.
func Start[T any](ctx context.Context, t Task[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = t.Run(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the task completes or ctx is done. The task itself
// keeps running when ctx ends first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Task turns the future back into a task that waits for the result.
func (f *Future[T]) Task() Task[T] {
	return f.Await
}
