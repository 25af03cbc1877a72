package engine

import (
	"context"

	"github.com/aryankumar/bandmean/internal/collective"
	"github.com/aryankumar/bandmean/internal/partition"
	"github.com/aryankumar/bandmean/internal/stats"
)

// reduceStrategy: static blocks, one sum-reduce of full-length vectors
type reduceStrategy struct{}

func (reduceStrategy) Name() string   { return "reduce" }
func (reduceStrategy) Method() string { return "reduce-sum" }

// Aggregate reduces a 2B vector laid out as sums[0:B] then counts[B:2B].
// Only the slots of a rank's own bands are non-zero, so the elementwise
// sum is the combined statistic. Counts travel in the same collective as
// sums to give a weighted mean.
func (reduceStrategy) Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error) {
	b := job.bands
	bands := partition.Static{}.Assign(b, w.Size(), w.Rank())
	w.logger.Debug("bands assigned", "path", job.path, "policy", partition.Static{}.Name(), "bands", bands)

	partials, localErr := w.reduceBands(ctx, job, bands)
	if err := w.agree(ctx, localErr); err != nil {
		return nil, err
	}

	vec := make([]float64, 2*b)
	for _, p := range partials {
		vec[p.Band] = p.Sum
		vec[b+p.Band] = float64(p.Count)
	}

	combined, err := collective.Reduce(ctx, w.comm, vec, collective.Sum, Coordinator)
	if err != nil {
		return nil, err
	}
	if !w.isCoordinator() {
		return nil, nil
	}

	means := make([]stats.BandMean, b)
	for i := range means {
		p := stats.Partial{Band: i, Sum: combined[i], Count: int64(combined[b+i])}
		means[i] = p.Final()
	}
	return means, nil
}
