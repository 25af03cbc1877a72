package engine

import (
	"context"
	"fmt"

	"github.com/aryankumar/bandmean/internal/collective"
	"github.com/aryankumar/bandmean/internal/partition"
	"github.com/aryankumar/bandmean/internal/stats"
)

// scatterStrategy: dynamic unit, one band per rank per round
type scatterStrategy struct{}

func (scatterStrategy) Name() string   { return "scatter" }
func (scatterStrategy) Method() string { return "scatter-per-band" }

// Aggregate walks the dynamic schedule, ceil(B/W) rounds. Every round
// scatters one band index per rank and gathers one partial per rank.
func (scatterStrategy) Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error) {
	rounds := partition.Dynamic{}.Rounds(job.bands, w.Size())

	var collected []stats.Partial
	for n, slots := range rounds {
		var items []int
		if w.isCoordinator() {
			items = slots
		}
		band, err := collective.Scatter(ctx, w.comm, items, Coordinator)
		if err != nil {
			return nil, err
		}

		p := stats.Padding()
		var localErr error
		if band != partition.Unassigned {
			p, localErr = w.reduceBand(job, band)
		}
		if err := w.agree(ctx, localErr); err != nil {
			return nil, err
		}

		got, err := collective.Gather(ctx, w.comm, []stats.Partial{p}, Coordinator)
		if err != nil {
			return nil, err
		}
		w.logger.Debug("scatter round complete", "path", job.path, "round", n, "band", band)

		for _, g := range got {
			collected = append(collected, g[0])
		}
	}

	if !w.isCoordinator() {
		return nil, nil
	}
	merged, err := stats.Merge(job.bands, collected)
	if err != nil {
		return nil, fmt.Errorf("merge scattered partials of %s: %w", job.path, err)
	}
	return stats.Means(merged), nil
}

// unweightedScatterStrategy processes one band per round with the rows
// split across ranks. Each round scatters the band index to every rank. Local means are sum-reduced and divided by the group
// size. This is not the weighted mean; it matches the other strategies
// only when every rank sees the same valid-count.
type unweightedScatterStrategy struct{}

func (unweightedScatterStrategy) Name() string   { return "scatter-unweighted" }
func (unweightedScatterStrategy) Method() string { return "scatter-per-band (unweighted mean of means)" }

func (unweightedScatterStrategy) Aggregate(ctx context.Context, w *worker, job *fileJob) ([]stats.BandMean, error) {
	var means []stats.BandMean
	if w.isCoordinator() {
		means = make([]stats.BandMean, job.bands)
	}

	for i := 0; i < job.bands; i++ {
		// Every rank works on the same band; the coordinator hands each
		// one its copy of the index
		var indices []int
		if w.isCoordinator() {
			indices = make([]int, w.Size())
			for r := range indices {
				indices[r] = i
			}
		}
		band, err := collective.Scatter(ctx, w.comm, indices, Coordinator)
		if err != nil {
			return nil, err
		}

		var local stats.Partial
		grid, localErr := w.readBand(job, band)
		if localErr == nil {
			lo, hi := partition.Static{}.Range(grid.Height, w.Size(), w.Rank())
			local = stats.ReduceRows(grid, lo, hi, w.valid)
		}
		if err := w.agree(ctx, localErr); err != nil {
			return nil, err
		}

		// [local mean, valid count]; the count is reported, not used
		combined, err := collective.Reduce(ctx, w.comm, []float64{local.Mean(), float64(local.Count)}, collective.Sum, Coordinator)
		if err != nil {
			return nil, err
		}
		if w.isCoordinator() {
			means[band] = stats.BandMean{
				Band:  band,
				Mean:  combined[0] / float64(w.Size()),
				Count: int64(combined[1]),
			}
		}
	}
	return means, nil
}
