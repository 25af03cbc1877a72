package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryankumar/bandmean/internal/collective"
	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/aryankumar/bandmean/internal/stats"
	"github.com/aryankumar/bandmean/internal/util"
	"github.com/google/uuid"
)

// Coordinator is the rank that owns the manifest and the results
const Coordinator = 0

var (
	// ErrInvalidDirectory indicates the input path is not a scannable directory
	ErrInvalidDirectory = util.ErrInvalidDirectory

	// ErrUnknownStrategy indicates no strategy is registered under a name
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrPeerFailed is the skip cause seen by ranks other than the
	// coordinator when another rank could not read its share of a file
	ErrPeerFailed = errors.New("another worker failed on this file")
)

// Options configures an Engine
type Options struct {
	// Strategy is the aggregation strategy name (default DefaultStrategy)
	Strategy string

	// Workers is the group size (default 1)
	Workers int

	// BandParallel is the number of bands a worker reduces concurrently
	BandParallel int

	// Valid decides which samples count (default stats.NotEqual(0))
	Valid stats.Validity

	// Decoder opens raster files (default TIFF on the OS filesystem)
	Decoder raster.Decoder

	// Scanner enumerates input files (default .tif/.tiff on the OS filesystem)
	Scanner *raster.Scanner

	Logger *slog.Logger
}

// Engine runs the per-file band statistics loop over a worker group
type Engine struct {
	strategy Strategy
	workers  int
	parallel int
	valid    stats.Validity
	decoder  raster.Decoder
	scanner  *raster.Scanner
	logger   *slog.Logger
}

// New validates opts and creates an Engine
func New(opts Options) (*Engine, error) {
	name := opts.Strategy
	if name == "" {
		name = DefaultStrategy
	}
	s, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		strategy: s,
		workers:  opts.Workers,
		parallel: opts.BandParallel,
		valid:    opts.Valid,
		decoder:  opts.Decoder,
		scanner:  opts.Scanner,
		logger:   opts.Logger,
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	if sw, ok := s.(singleWorker); ok && sw.singleWorker() {
		e.workers = 1
	}
	if e.parallel <= 0 {
		e.parallel = 1
	}
	if e.valid == nil {
		e.valid = stats.NotEqual(0)
	}
	if e.decoder == nil {
		e.decoder = raster.NewTIFFDecoder(nil)
	}
	if e.scanner == nil {
		e.scanner = raster.NewScanner(nil, nil)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Workers returns the effective group size
func (e *Engine) Workers() int {
	return e.workers
}

// Strategy returns the configured strategy
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// manifest is broadcast by the coordinator before the per-file loop
type manifest struct {
	Files []string
	Err   string
}

// fileHeader is broadcast by the coordinator at the start of every file
type fileHeader struct {
	Bands int
	Err   string
}

// fileJob is one rank's view of the file being processed
type fileJob struct {
	path    string
	bands   int
	ds      raster.Dataset
	openErr error
}

// worker is the per-rank state handed to strategies
type worker struct {
	comm     *collective.Comm
	valid    stats.Validity
	parallel int
	decoder  raster.Decoder
	logger   *slog.Logger
}

// Rank returns the worker identity
func (w *worker) Rank() int { return w.comm.Rank() }

// Size returns the group size
func (w *worker) Size() int { return w.comm.Size() }

func (w *worker) isCoordinator() bool { return w.comm.Rank() == Coordinator }

// skipError marks a file every rank agreed to skip
type skipError struct {
	err error
}

func (s *skipError) Error() string { return s.err.Error() }
func (s *skipError) Unwrap() error { return s.err }

// Run processes every raster file of dir and returns the coordinator's
// report. Per-file failures are recorded as skipped files; group failures
// end the run with an error.
func (e *Engine) Run(ctx context.Context, dir string) (*Report, error) {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	report := &Report{
		RunID:     runID,
		Strategy:  e.strategy.Name(),
		Method:    e.strategy.Method(),
		Workers:   e.workers,
		Directory: dir,
	}

	logger.Info("starting run",
		"strategy", report.Strategy,
		"workers", e.workers,
		"directory", dir)

	start := time.Now()
	group := collective.NewGroup(e.workers, logger)
	err := group.Run(ctx, func(ctx context.Context, c *collective.Comm) error {
		w := &worker{
			comm:     c,
			valid:    e.valid,
			parallel: e.parallel,
			decoder:  e.decoder,
			logger:   logger.With("rank", c.Rank()),
		}
		var r *Report
		if c.Rank() == Coordinator {
			r = report
		}
		return e.runRank(ctx, w, dir, r)
	})
	report.Elapsed = time.Since(start)

	if err != nil {
		return nil, err
	}

	logger.Info("run completed",
		"processed", report.Processed,
		"skipped", len(report.Skipped),
		"elapsed", report.Elapsed)

	return report, nil
}

// runRank is the symmetric driver loop. report is non-nil on the
// coordinator only.
func (e *Engine) runRank(ctx context.Context, w *worker, dir string, report *Report) error {
	var m manifest
	if w.isCoordinator() {
		files, err := e.scanner.Scan(dir)
		if err != nil {
			m.Err = err.Error()
		}
		m.Files = files
	}

	m, err := collective.Broadcast(ctx, w.comm, m, Coordinator)
	if err != nil {
		return err
	}
	if m.Err != "" {
		if w.isCoordinator() {
			w.logger.Error("cannot scan input", "directory", dir, "error", m.Err)
		}
		return fmt.Errorf("%w: %s", ErrInvalidDirectory, m.Err)
	}

	files := append([]string(nil), m.Files...)
	w.logger.Debug("manifest received", "files", len(files))

	for _, path := range files {
		if err := e.processFile(ctx, w, path, report); err != nil {
			return err
		}
	}
	return nil
}

// processFile runs Discover, Partition, Compute, Aggregate and Record for
// one file. Only group failures are returned.
func (e *Engine) processFile(ctx context.Context, w *worker, path string, report *Report) error {
	start := time.Now()

	// Discover: the coordinator opens the file first and keeps its handle
	var hdr fileHeader
	var ds raster.Dataset
	if w.isCoordinator() {
		var err error
		ds, err = w.decoder.Open(path)
		if err != nil {
			hdr.Err = err.Error()
		} else {
			hdr.Bands = ds.BandCount()
		}
	}

	hdr, err := collective.Broadcast(ctx, w.comm, hdr, Coordinator)
	if err != nil {
		closeDataset(ds)
		return err
	}
	if hdr.Err != "" {
		if report != nil {
			w.logger.Warn("skipping file", "path", path, "error", hdr.Err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: hdr.Err})
		}
		return nil
	}

	job := &fileJob{path: path, bands: hdr.Bands, ds: ds}
	if !w.isCoordinator() {
		job.ds, job.openErr = w.decoder.Open(path)
	}
	defer closeDataset(job.ds)

	means, err := e.strategy.Aggregate(ctx, w, job)

	var skip *skipError
	if errors.As(err, &skip) {
		if report != nil {
			w.logger.Warn("skipping file", "path", path, "error", skip.err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: skip.err.Error()})
		}
		return nil
	}
	if err != nil {
		return err
	}

	if report != nil {
		report.Processed++
		report.Files = append(report.Files, FileResult{
			Path:     path,
			Bands:    hdr.Bands,
			Means:    means,
			Duration: time.Since(start),
		})
		w.logger.Info("file processed",
			"path", path,
			"bands", hdr.Bands,
			"duration", time.Since(start))
	}
	return nil
}

func closeDataset(ds raster.Dataset) {
	if ds != nil {
		ds.Close()
	}
}

// agree makes every rank take the same decision about the current file
// before the collective that carries partials. localErr is this rank's
// outcome. A nil return means every rank succeeded; a *skipError means
// every rank gives up on the file; anything else is a group failure.
func (w *worker) agree(ctx context.Context, localErr error) error {
	msg := ""
	if localErr != nil {
		msg = localErr.Error()
		w.logger.Warn("local failure, voting to skip file", "error", localErr)
	}

	votes, err := collective.Gather(ctx, w.comm, []string{msg}, Coordinator)
	if err != nil {
		return err
	}

	var cause error
	if w.isCoordinator() {
		failures := &util.MultiError{}
		for r, v := range votes {
			if v[0] != "" {
				failures.Add(fmt.Errorf("rank %d: %s", r, v[0]))
			}
		}
		cause = failures.ErrorOrNil()
	}

	skip, err := collective.Broadcast(ctx, w.comm, cause != nil, Coordinator)
	if err != nil {
		return err
	}
	if !skip {
		return nil
	}
	if cause == nil {
		cause = ErrPeerFailed
	}
	return &skipError{err: cause}
}
