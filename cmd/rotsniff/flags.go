package main

import (
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/config"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/filter"
)

// buildMatcher compiles the walk filter from the fnfilter, negate_fnfilter
// and exclude settings. --negate-fnfilter without --fnfilter has no effect.
func buildMatcher(cfg *config.Config) (*filter.Matcher, error) {
	var opts []filter.Option
	if cfg.FnFilter != "" {
		opts = append(opts, filter.WithPattern(cfg.FnFilter), filter.WithNegate(cfg.NegateFnFilter))
	}
	if len(cfg.Exclude) > 0 {
		opts = append(opts, filter.WithExclude(cfg.Exclude...))
	}
	return filter.New(opts...)
}
