package engine

import (
	"context"
	"fmt"

	"github.com/aryankumar/bandmean/internal/collective"
	"github.com/aryankumar/bandmean/internal/partition"
	"github.com/aryankumar/bandmean/internal/stats"
)

// gatherStrategy: static blocks, one gather of every rank's partials
type gatherStrategy struct{}

func (gatherStrategy) Name() string   { return "gather" }
func (gatherStrategy) Method() string { return "gather-then-merge" }

// Aggregate sends MaxBlock padded partials per rank in a single gather.
// The coordinator concatenates them and divides once per band.
func (gatherStrategy) Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error) {
	bands := partition.Static{}.Assign(job.bands, w.Size(), w.Rank())
	w.logger.Debug("bands assigned", "path", job.path, "policy", partition.Static{}.Name(), "bands", bands)

	partials, localErr := w.reduceBands(ctx, job, bands)
	if err := w.agree(ctx, localErr); err != nil {
		return nil, err
	}

	// Every rank sizes its buffer from (B, W) alone so lengths match
	buf := make([]stats.Partial, partition.MaxBlock(job.bands, w.Size()))
	for i := range buf {
		buf[i] = stats.Padding()
	}
	copy(buf, partials)

	all, err := collective.Gather(ctx, w.comm, buf, Coordinator)
	if err != nil {
		return nil, err
	}
	if !w.isCoordinator() {
		return nil, nil
	}

	flat := make([]stats.Partial, 0, len(all)*len(buf))
	for _, part := range all {
		flat = append(flat, part...)
	}
	merged, err := stats.Merge(job.bands, flat)
	if err != nil {
		return nil, fmt.Errorf("merge gathered partials of %s: %w", job.path, err)
	}
	return stats.Means(merged), nil
}
