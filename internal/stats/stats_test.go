package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/aryankumar/bandmean/internal/raster"
)

func band(index, width, height int, samples ...float32) *raster.Band {
	return &raster.Band{Index: index, Width: width, Height: height, Samples: samples}
}

func TestReduce(t *testing.T) {
	nan := float32(math.NaN())

	tests := []struct {
		name      string
		band      *raster.Band
		valid     Validity
		wantSum   float64
		wantCount int64
		wantMean  float64
	}{
		{
			name:      "sentinel zero skipped",
			band:      band(0, 2, 2, 0, 0, 4, 6),
			valid:     NotEqual(0),
			wantSum:   10,
			wantCount: 2,
			wantMean:  5,
		},
		{
			name:      "all sentinel",
			band:      band(1, 3, 1, 0, 0, 0),
			valid:     NotEqual(0),
			wantSum:   0,
			wantCount: 0,
			wantMean:  0,
		},
		{
			name:      "custom sentinel keeps zeros",
			band:      band(0, 4, 1, -9999, 0, 2, -9999),
			valid:     NotEqual(-9999),
			wantSum:   2,
			wantCount: 2,
			wantMean:  1,
		},
		{
			name:      "all valid counts zeros",
			band:      band(0, 4, 1, 0, 0, 4, 6),
			valid:     AllValid(),
			wantSum:   10,
			wantCount: 4,
			wantMean:  2.5,
		},
		{
			name:      "NaN never counts",
			band:      band(0, 3, 1, nan, 3, nan),
			valid:     AllValid(),
			wantSum:   3,
			wantCount: 1,
			wantMean:  3,
		},
		{
			name:      "NaN rejected by sentinel predicate",
			band:      band(0, 2, 1, nan, 8),
			valid:     NotEqual(0),
			wantSum:   8,
			wantCount: 1,
			wantMean:  8,
		},
		{
			name:  "empty band",
			band:  band(2, 0, 0),
			valid: NotEqual(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Reduce(tt.band, tt.valid)

			if p.Band != tt.band.Index {
				t.Errorf("Band = %d, want %d", p.Band, tt.band.Index)
			}
			if p.Sum != tt.wantSum {
				t.Errorf("Sum = %v, want %v", p.Sum, tt.wantSum)
			}
			if p.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", p.Count, tt.wantCount)
			}
			if p.Mean() != tt.wantMean {
				t.Errorf("Mean = %v, want %v", p.Mean(), tt.wantMean)
			}
		})
	}
}

func TestReduceRows(t *testing.T) {
	// 3x3 grid with rows 1..3, 4..6, 7..9
	b := band(0, 3, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	tests := []struct {
		name      string
		lo, hi    int
		wantSum   float64
		wantCount int64
	}{
		{name: "first row", lo: 0, hi: 1, wantSum: 6, wantCount: 3},
		{name: "last two rows", lo: 1, hi: 3, wantSum: 39, wantCount: 6},
		{name: "empty range", lo: 2, hi: 2},
		{name: "clamped", lo: -4, hi: 10, wantSum: 45, wantCount: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ReduceRows(b, tt.lo, tt.hi, AllValid())
			if p.Sum != tt.wantSum || p.Count != tt.wantCount {
				t.Errorf("ReduceRows(%d, %d) = (%v, %d), want (%v, %d)",
					tt.lo, tt.hi, p.Sum, p.Count, tt.wantSum, tt.wantCount)
			}
		})
	}

	// Row stripes add up to the whole band
	whole := Reduce(b, AllValid())
	split := ReduceRows(b, 0, 1, AllValid()).Add(ReduceRows(b, 1, 3, AllValid()))
	if split.Sum != whole.Sum || split.Count != whole.Count {
		t.Errorf("stripes = %+v, whole = %+v", split, whole)
	}
}

func TestPartial(t *testing.T) {
	pad := Padding()
	if !pad.IsPadding() || pad.Band != NoBand {
		t.Errorf("Padding() = %+v", pad)
	}
	if pad.Mean() != 0 {
		t.Errorf("padding mean = %v, want 0", pad.Mean())
	}

	p := Partial{Band: 3, Sum: 10, Count: 4}.Add(Partial{Band: 3, Sum: 2, Count: 2})
	if p.Band != 3 || p.Sum != 12 || p.Count != 6 || p.Mean() != 2 {
		t.Errorf("Add = %+v", p)
	}

	m := p.Final()
	if m.Band != 3 || m.Mean != 2 || m.Count != 6 {
		t.Errorf("Final = %+v", m)
	}
}

func TestMerge(t *testing.T) {
	t.Run("out of order with padding", func(t *testing.T) {
		merged, err := Merge(3, []Partial{
			{Band: 2, Sum: 9, Count: 3},
			Padding(),
			{Band: 0, Sum: 4, Count: 2},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(merged) != 3 {
			t.Fatalf("expected 3 partials, got %d", len(merged))
		}

		means := Means(merged)
		want := []float64{2, 0, 3}
		for i, m := range means {
			if m.Band != i {
				t.Errorf("means[%d].Band = %d", i, m.Band)
			}
			if m.Mean != want[i] {
				t.Errorf("means[%d].Mean = %v, want %v", i, m.Mean, want[i])
			}
		}
	})

	errTests := []struct {
		name     string
		partials []Partial
		contains string
	}{
		{name: "band too large", partials: []Partial{{Band: 3}}, contains: "outside"},
		{name: "negative band", partials: []Partial{{Band: -2}}, contains: "outside"},
		{name: "duplicate band", partials: []Partial{{Band: 1}, {Band: 1}}, contains: "twice"},
	}

	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(3, tt.partials)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error to contain %q, got %q", tt.contains, err.Error())
			}
		})
	}
}
