package core

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type (
	// Strategy is one step of an ordered fallback chain.
	Strategy[T any] struct {
		Name string
		Try  func(ctx context.Context) (T, error)
	}

	// Outcome tags the failure of one attempted Strategy.
	Outcome struct {
		Strategy string
		Err      error
	}

	ChainOptions struct {
		AttemptTimeout time.Duration
		Logger         Logger
	}
)

// FirstSuccess tries strategies in order and returns the first success.
// Each attempt runs under its own AttemptTimeout, all of them under ctx.
// A rejection (ErrUpstreamRejected) ends the chain immediately; any other failure moves on to the next strategy.
// When every strategy failed the error is caused by ErrUpstreamUnreachable.
func FirstSuccess[T any](ctx context.Context, opts ChainOptions, strategies ...Strategy[T]) (T, []Outcome, error) {
	var zero T
	outcomes := make([]Outcome, 0, len(strategies))

	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{Strategy: strategy.Name, Err: err})
			break
		}

		res, err := attempt(ctx, opts.AttemptTimeout, strategy)
		if err == nil {
			return res, outcomes, nil
		}
		if IsUpstreamRejected(err) {
			return zero, append(outcomes, Outcome{Strategy: strategy.Name, Err: err}), err
		}

		outcomes = append(outcomes, Outcome{Strategy: strategy.Name, Err: err})
		if opts.Logger != nil {
			opts.Logger.Warn(fmt.Sprintf("%s failed, trying next", strategy.Name), err)
		}
	}

	return zero, outcomes, errors.Wrap(ErrUpstreamUnreachable, summarize(outcomes))
}

func attempt[T any](ctx context.Context, timeout time.Duration, strategy Strategy[T]) (T, error) {
	if timeout <= 0 {
		return strategy.Try(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return strategy.Try(attemptCtx)
}

func summarize(outcomes []Outcome) string {
	if len(outcomes) == 0 {
		return "no strategy attempted"
	}
	last := outcomes[len(outcomes)-1]
	return fmt.Sprintf("%d attempt(s) failed, last %s: %v", len(outcomes), last.Strategy, last.Err)
}
