package stats

import (
	"fmt"
	"math"

	"github.com/aryankumar/bandmean/internal/raster"
)

// NoBand marks a padding slot in a fixed-size collective buffer.
// Padding partials carry no samples and are ignored when merging.
const NoBand = -1

// Partial is the running statistic of one band on one worker
type Partial struct {
	// Band is the band index, or NoBand for padding
	Band int `json:"band" yaml:"band"`

	// Sum of every valid sample, accumulated in float64
	Sum float64 `json:"sum" yaml:"sum"`

	// Count is the number of valid samples
	Count int64 `json:"count" yaml:"count"`
}

// Padding returns an empty partial that occupies a buffer slot
func Padding() Partial {
	return Partial{Band: NoBand}
}

// IsPadding reports whether the partial is a padding slot
func (p Partial) IsPadding() bool {
	return p.Band == NoBand
}

// Mean returns Sum/Count, or 0 when the band has no valid samples
func (p Partial) Mean() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.Sum / float64(p.Count)
}

// Add merges q into p. Both must describe the same band.
func (p Partial) Add(q Partial) Partial {
	return Partial{Band: p.Band, Sum: p.Sum + q.Sum, Count: p.Count + q.Count}
}

// BandMean is the final statistic of one band
type BandMean struct {
	Band  int     `json:"band" yaml:"band"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Count int64   `json:"count" yaml:"count"`
}

// Final converts a fully merged partial into a BandMean
func (p Partial) Final() BandMean {
	return BandMean{Band: p.Band, Mean: p.Mean(), Count: p.Count}
}

// Validity decides whether a sample contributes to the statistic
type Validity func(v float32) bool

// NotEqual treats samples equal to sentinel as no-data. NaN is never valid.
func NotEqual(sentinel float64) Validity {
	s := float32(sentinel)
	return func(v float32) bool {
		return v == v && v != s
	}
}

// AllValid accepts every sample except NaN
func AllValid() Validity {
	return func(v float32) bool {
		return !math.IsNaN(float64(v))
	}
}

// Reduce streams every sample of the band through valid.
//
// Sums are accumulated in float64 over float32 samples. The result is a
// bounded-precision sum, not exact arithmetic; no overflow checking is done.
func Reduce(band *raster.Band, valid Validity) Partial {
	return ReduceRows(band, 0, band.Height, valid)
}

// ReduceRows reduces the rows [lo, hi) of band. An empty row range yields
// a zero partial for the band.
func ReduceRows(band *raster.Band, lo, hi int, valid Validity) Partial {
	p := Partial{Band: band.Index}
	if lo < 0 {
		lo = 0
	}
	if hi > band.Height {
		hi = band.Height
	}
	for y := lo; y < hi; y++ {
		row := band.Samples[y*band.Width : (y+1)*band.Width]
		for _, v := range row {
			if !valid(v) {
				continue
			}
			p.Sum += float64(v)
			p.Count++
		}
	}
	return p
}

// Merge folds partials into one full-length slice indexed by band. Padding
// is skipped. A band index outside [0, bands) is an error, as is a band
// reported by more than one partial.
func Merge(bands int, partials []Partial) ([]Partial, error) {
	out := make([]Partial, bands)
	seen := make([]bool, bands)
	for i := range out {
		out[i].Band = i
	}
	for _, p := range partials {
		if p.IsPadding() {
			continue
		}
		if p.Band < 0 || p.Band >= bands {
			return nil, fmt.Errorf("partial for band %d outside [0,%d)", p.Band, bands)
		}
		if seen[p.Band] {
			return nil, fmt.Errorf("band %d reported twice", p.Band)
		}
		seen[p.Band] = true
		out[p.Band] = p
	}
	return out, nil
}

// Means finalizes a full-length slice of partials
func Means(partials []Partial) []BandMean {
	out := make([]BandMean, len(partials))
	for i, p := range partials {
		out[i] = p.Final()
	}
	return out
}
