package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/aryankumar/bandmean/internal/stats"
)

// Strategy combines the partial statistics of every worker into per-band
// means for one file. Every rank calls Aggregate for every file; the
// coordinator receives the means and every other rank receives nil.
//
// Implementations must issue the same collectives in the same order on
// every rank, and must agree on participation before the collective that
// carries partials.
type Strategy interface {
	// Name is the registry key used on the command line
	Name() string

	// Method describes the collective pattern in reports
	Method() string

	// Aggregate computes this rank's share of job and merges it
	Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error)
}

// singleWorker is implemented by strategies that run on one rank only
type singleWorker interface {
	singleWorker() bool
}

var registry = map[string]Strategy{}

func register(s Strategy) {
	registry[s.Name()] = s
}

func init() {
	register(gatherStrategy{})
	register(reduceStrategy{})
	register(scatterStrategy{})
	register(unweightedScatterStrategy{})
	register(baselineStrategy{})
}

// DefaultStrategy is used when no strategy is configured
const DefaultStrategy = "gather"

// Strategies returns the registered strategy names, sorted
func Strategies() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the strategy registered under name
func Lookup(name string) (Strategy, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownStrategy, name, Strategies())
	}
	return s, nil
}
