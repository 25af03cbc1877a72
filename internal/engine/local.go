package engine

import (
	"context"
	"errors"

	"github.com/aryankumar/bandmean/internal/executor"
	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/aryankumar/bandmean/internal/stats"
)

// readBand decodes one band from this rank's own handle
func (w *worker) readBand(job *fileJob, index int) (*raster.Band, error) {
	if job.openErr != nil {
		return nil, job.openErr
	}
	band, err := job.ds.ReadBand(index)
	if err != nil {
		if !errors.Is(err, raster.ErrRead) {
			err = &raster.ReadError{Path: job.path, Band: index, Err: err}
		}
		return nil, err
	}
	return band, nil
}

// reduceBand decodes and reduces one whole band. The grid is dropped as
// soon as the partial is computed.
func (w *worker) reduceBand(job *fileJob, index int) (stats.Partial, error) {
	band, err := w.readBand(job, index)
	if err != nil {
		return stats.Partial{}, err
	}
	return stats.Reduce(band, w.valid), nil
}

// reduceBands computes the partials of bands, in order. With more than
// one band and BandParallel > 1 the bands are reduced by an executor pool;
// either way every partial is ready before the caller's next collective.
func (w *worker) reduceBands(ctx context.Context, job *fileJob, bands []int) ([]stats.Partial, error) {
	if len(bands) == 0 {
		return nil, nil
	}
	if job.openErr != nil {
		return nil, job.openErr
	}

	if w.parallel <= 1 || len(bands) == 1 {
		out := make([]stats.Partial, 0, len(bands))
		for _, i := range bands {
			p, err := w.reduceBand(job, i)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	pool := executor.NewPool(w.parallel, w.logger)
	for _, i := range bands {
		err := pool.Submit(executor.Task{
			Band: i,
			Execute: func(ctx context.Context) (stats.Partial, error) {
				return w.reduceBand(job, i)
			},
		})
		if err != nil {
			return nil, err
		}
	}

	w.logger.Debug("reducing bands", "path", job.path, "tasks", pool.TaskCount(), "goroutines", pool.WorkerCount())
	results := pool.ExecuteWithProgress(ctx, func(completed, total int) {
		w.logger.Debug("band reduced", "path", job.path, "completed", completed, "total", total)
	})
	w.logger.Debug("local bands reduced", "summary", executor.Summarize(results).String())
	if err := executor.FirstError(results); err != nil {
		return nil, err
	}
	return executor.Partials(results), nil
}
