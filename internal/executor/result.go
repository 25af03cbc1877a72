package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/aryankumar/bandmean/internal/stats"
)

// CountSuccessful returns the number of successful results (no error)
func CountSuccessful(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Error == nil {
			count++
		}
	}
	return count
}

// CountFailed returns the number of failed results (has error)
func CountFailed(results []Result) int {
	return len(results) - CountSuccessful(results)
}

// FirstError returns the error of the first failed result in order, or nil
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// Partials extracts the band statistics of successful results, in order
func Partials(results []Result) []stats.Partial {
	out := make([]stats.Partial, 0, len(results))
	for _, r := range results {
		if r.Error == nil {
			out = append(out, r.Partial)
		}
	}
	return out
}

// MaxDuration returns the maximum duration among all results
func MaxDuration(results []Result) time.Duration {
	var max time.Duration
	for _, r := range results {
		if r.Duration > max {
			max = r.Duration
		}
	}
	return max
}

// Summary provides a summary of execution results
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	Valid       int64
	MaxDuration time.Duration
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	s := Summary{
		Total:       len(results),
		Successful:  CountSuccessful(results),
		Failed:      CountFailed(results),
		MaxDuration: MaxDuration(results),
	}
	for _, p := range Partials(results) {
		s.Valid += p.Count
	}
	return s
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Bands: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Valid samples: %d", s.Valid))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
	}

	return sb.String()
}
