package worker

import (
	"context"
)

// Outcome pairs an item's value with the error produced computing it
type Outcome[R any] struct {
	Value R
	Err   error
}

// GetError returns the error from the outcome
func (o *Outcome[R]) GetError() error {
	return o.Err
}

// Map runs fn over items on a pool of workers and returns outcomes in item
// order. Items not started before ctx is cancelled report ctx.Err().
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []Outcome[R] {
	jobs := make([]Job, len(items))
	for i, item := range items {
		item := item
		jobs[i] = JobFunc(func(ctx context.Context) Result {
			v, err := fn(ctx, item)
			return &Outcome[R]{Value: v, Err: err}
		})
	}

	results := Run(ctx, workers, jobs)

	out := make([]Outcome[R], len(items))
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = Outcome[R]{Err: err}
			continue
		}
		out[i] = *r.(*Outcome[R])
	}
	return out
}

// Errors returns the non-nil errors of outcomes, in item order
func Errors[R any](outcomes []Outcome[R]) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
