package scheduler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/logger"
)

// Analyzer builds productivity profiles from the recent samples of a user
type Analyzer struct {
	samples  SampleRepositoryInterface
	cache    ProfileCacheInterface
	defaults Defaults
	logger   logger.Interface
}

// NewAnalyzer builds a new Analyzer, cache may be nil
func NewAnalyzer(samples SampleRepositoryInterface, cache ProfileCacheInterface, defaults Defaults, logger logger.Interface) *Analyzer {
	return &Analyzer{
		samples:  samples,
		cache:    cache,
		defaults: defaults,
		logger:   logger,
	}
}

// Analyze returns the profile of all samples of the user within the lookback window
func (a *Analyzer) Analyze(ctx context.Context, userID string) (*Profile, error) {
	var generation int64
	cacheable := false

	if a.cache != nil {
		cached, err := a.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}

		// read before the samples so a concurrent invalidation outdates this profile
		generation, err = a.cache.Generation(ctx, userID)
		if err != nil {
			a.logger.Error(fmt.Sprintf("could not read profile generation of user %s", userID), err)
		} else {
			cacheable = true
		}
	}

	cutoff := now().AddDate(0, 0, -a.defaults.LookbackDays)

	samples, err := a.samples.FindSince(ctx, userID, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "could not load productivity samples")
	}

	profile := BuildProfile(userID, samples)

	if cacheable {
		err = a.cache.Add(ctx, userID, generation, profile)
		if err != nil {
			a.logger.Error(fmt.Sprintf("could not cache profile of user %s", userID), err)
		}
	}

	return profile, nil
}

// Invalidate drops a cached profile of the user
func (a *Analyzer) Invalidate(ctx context.Context, userID string) error {
	if a.cache == nil {
		return nil
	}

	return a.cache.Invalidate(ctx, userID)
}
