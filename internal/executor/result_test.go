package executor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aryankumar/bandmean/internal/stats"
)

func sampleResults() []Result {
	return []Result{
		{Band: 0, Partial: stats.Partial{Band: 0, Sum: 10, Count: 2}, Duration: 10 * time.Millisecond},
		{Band: 1, Error: errors.New("read failed"), Duration: 30 * time.Millisecond},
		{Band: 2, Partial: stats.Partial{Band: 2, Sum: 3, Count: 3}, Duration: 20 * time.Millisecond},
	}
}

func TestCountResults(t *testing.T) {
	tests := []struct {
		name           string
		results        []Result
		wantSuccessful int
		wantFailed     int
	}{
		{name: "empty", results: []Result{}, wantSuccessful: 0, wantFailed: 0},
		{name: "mixed", results: sampleResults(), wantSuccessful: 2, wantFailed: 1},
		{name: "all failed", results: []Result{{Error: errors.New("a")}, {Error: errors.New("b")}}, wantSuccessful: 0, wantFailed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountSuccessful(tt.results); got != tt.wantSuccessful {
				t.Errorf("CountSuccessful() = %d, want %d", got, tt.wantSuccessful)
			}
			if got := CountFailed(tt.results); got != tt.wantFailed {
				t.Errorf("CountFailed() = %d, want %d", got, tt.wantFailed)
			}
		})
	}
}

func TestFirstError(t *testing.T) {
	if err := FirstError(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	first := errors.New("first")
	results := []Result{{Band: 0}, {Band: 1, Error: first}, {Band: 2, Error: errors.New("second")}}
	if err := FirstError(results); err != first {
		t.Errorf("expected %v, got %v", first, err)
	}
}

func TestPartials(t *testing.T) {
	partials := Partials(sampleResults())

	if len(partials) != 2 {
		t.Fatalf("expected 2 partials, got %d", len(partials))
	}
	if partials[0].Band != 0 || partials[1].Band != 2 {
		t.Errorf("expected bands [0 2], got [%d %d]", partials[0].Band, partials[1].Band)
	}
}

func TestMaxDuration(t *testing.T) {
	if got := MaxDuration(nil); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := MaxDuration(sampleResults()); got != 30*time.Millisecond {
		t.Errorf("expected 30ms, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())

	if s.Total != 3 || s.Successful != 2 || s.Failed != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Valid != 5 {
		t.Errorf("expected 5 valid samples, got %d", s.Valid)
	}
	if s.MaxDuration != 30*time.Millisecond {
		t.Errorf("expected max 30ms, got %v", s.MaxDuration)
	}
}

func TestSummary_String(t *testing.T) {
	str := Summarize(sampleResults()).String()

	for _, want := range []string{"Bands: 3", "Successful: 2", "Failed: 1", "Valid samples: 5", "Max: 30ms"} {
		if !strings.Contains(str, want) {
			t.Errorf("expected %q in %q", want, str)
		}
	}
}

func TestSummary_String_Empty(t *testing.T) {
	str := Summarize(nil).String()

	if str != "Bands: 0, Successful: 0, Failed: 0" {
		t.Errorf("unexpected summary %q", str)
	}
}
