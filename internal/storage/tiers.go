package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Opener attempts to initialise one tier.
type Opener struct {
	Tier Tier
	Open func(ctx context.Context) (Collection, error)
}

// TierFailure records why a tier could not be used.
type TierFailure struct {
	Tier Tier
	Err  error
}

func (f TierFailure) Error() string {
	return fmt.Sprintf("tier %s (%s): %v", f.Tier.Letter(), f.Tier, f.Err)
}

func (f TierFailure) Unwrap() error { return f.Err }

// Selection is the outcome of Select: the active collection plus every tier
// that was skipped on the way to it.
type Selection struct {
	Collection Collection
	Failures   []TierFailure
}

// Tier returns the tier of the active collection.
func (s *Selection) Tier() Tier {
	return s.Collection.Capabilities().Tier
}

// Select tries openers in order and returns the first collection that opens.
// It does no logging; callers decide how to present the failures. When every
// opener fails the error wraps ErrNoTierAvailable and each TierFailure.
func Select(ctx context.Context, openers ...Opener) (*Selection, error) {
	var failures []TierFailure
	for _, o := range openers {
		c, err := o.Open(ctx)
		if err == nil && c != nil {
			return &Selection{Collection: c, Failures: failures}, nil
		}
		if err == nil {
			err = errors.New("opener returned no collection")
		}
		failures = append(failures, TierFailure{Tier: o.Tier, Err: err})
	}

	errs := []error{ErrNoTierAvailable}
	for _, f := range failures {
		errs = append(errs, f)
	}
	return nil, errors.Join(errs...)
}

// Options configures the default tier chain.
type Options struct {
	Dir         string
	Collection  string
	QdrantHost  string
	QdrantPort  int
	QdrantRetry time.Duration
	DisableDisk bool
}

// DefaultOpeners returns the A-D chain. Tier A is reported as not configured
// when no Qdrant host is set; tier B when the disk tier is disabled.
func DefaultOpeners(opts Options) []Opener {
	return []Opener{
		{Tier: TierQdrant, Open: func(ctx context.Context) (Collection, error) {
			return NewQdrantCollection(ctx, QdrantConfig{
				Host:       opts.QdrantHost,
				Port:       opts.QdrantPort,
				Collection: opts.Collection,
				MaxElapsed: opts.QdrantRetry,
			})
		}},
		{Tier: TierSQLite, Open: func(ctx context.Context) (Collection, error) {
			if opts.DisableDisk {
				return nil, fmt.Errorf("sqlite: %w", ErrTierNotConfigured)
			}
			return NewSQLiteCollection(ctx, opts.Dir, opts.Collection)
		}},
		{Tier: TierMemory, Open: func(ctx context.Context) (Collection, error) {
			return NewMemoryCollection(), nil
		}},
		{Tier: TierFallback, Open: func(ctx context.Context) (Collection, error) {
			return NewFallbackCollection(), nil
		}},
	}
}
