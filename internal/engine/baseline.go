package engine

import (
	"context"

	"github.com/aryankumar/bandmean/internal/stats"
)

// baselineStrategy reduces every band on a single worker, with no
// partitioning. Engines using it always run a group of one.
type baselineStrategy struct{}

func (baselineStrategy) Name() string       { return "baseline" }
func (baselineStrategy) Method() string     { return "sequential" }
func (baselineStrategy) singleWorker() bool { return true }

func (baselineStrategy) Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error) {
	bands := make([]int, job.bands)
	for i := range bands {
		bands[i] = i
	}

	partials, localErr := w.reduceBands(ctx, job, bands)
	if err := w.agree(ctx, localErr); err != nil {
		return nil, err
	}
	if !w.isCoordinator() {
		return nil, nil
	}
	merged, err := stats.Merge(job.bands, partials)
	if err != nil {
		return nil, err
	}
	return stats.Means(merged), nil
}
