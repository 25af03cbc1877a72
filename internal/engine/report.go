package engine

import (
	"time"

	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/aryankumar/bandmean/internal/stats"
	"github.com/aryankumar/bandmean/internal/util"
)

// Report is the coordinator's result of a run
type Report struct {
	RunID     string        `json:"runId" yaml:"runId"`
	Strategy  string        `json:"strategy" yaml:"strategy"`
	Method    string        `json:"method" yaml:"method"`
	Workers   int           `json:"workers" yaml:"workers"`
	Directory string        `json:"directory" yaml:"directory"`
	Processed int           `json:"processed" yaml:"processed"`
	Skipped   []SkippedFile `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Files     []FileResult  `json:"files,omitempty" yaml:"files,omitempty"`
	Elapsed   time.Duration `json:"-" yaml:"-"`
}

// ElapsedSeconds returns the wall-clock duration of the run in seconds
func (r *Report) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// FileResult holds the band means of one processed file
type FileResult struct {
	Path     string           `json:"path" yaml:"path"`
	Bands    int              `json:"bands" yaml:"bands"`
	Means    []stats.BandMean `json:"means" yaml:"means"`
	Duration time.Duration    `json:"-" yaml:"-"`
}

// SkippedFile records a file every worker agreed to skip
type SkippedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Inspect computes the band means of a single file without a worker group
func Inspect(decoder raster.Decoder, path string, valid stats.Validity) (*FileResult, error) {
	if decoder == nil {
		decoder = raster.NewTIFFDecoder(nil)
	}
	if valid == nil {
		valid = stats.NotEqual(0)
	}

	start := time.Now()
	ds, err := decoder.Open(path)
	if err != nil {
		return nil, util.WrapFileError(path, err)
	}
	defer ds.Close()

	res := &FileResult{Path: path, Bands: ds.BandCount()}
	res.Means = make([]stats.BandMean, 0, res.Bands)
	for i := 0; i < res.Bands; i++ {
		band, err := ds.ReadBand(i)
		if err != nil {
			return nil, util.WrapFileError(path, err)
		}
		res.Means = append(res.Means, stats.Reduce(band, valid).Final())
	}
	res.Duration = time.Since(start)
	return res, nil
}
