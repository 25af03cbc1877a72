// Package partition decides which bands each worker of a fixed-size group
// computes for one file.
package partition

import "fmt"

// Unassigned fills a dynamic round slot that has no band
const Unassigned = -1

// Policy assigns band indices to a worker
type Policy interface {
	// Name identifies the policy in logs and reports
	Name() string

	// Assign returns the bands of worker r out of w for a file with b bands
	Assign(b, w, r int) []int
}

// Static hands each worker one contiguous block of b/w bands. The last
// worker absorbs the remainder.
type Static struct{}

// Name implements Policy
func (Static) Name() string { return "static-block" }

// Range returns the half-open block [lo, hi) of worker r. When b < w the
// block size is 0, so every worker but the last gets an empty range.
func (Static) Range(b, w, r int) (lo, hi int) {
	if b <= 0 || w <= 0 || r < 0 || r >= w {
		return 0, 0
	}
	block := b / w
	lo = r * block
	hi = lo + block
	if r == w-1 {
		hi = b
	}
	return lo, hi
}

// Assign implements Policy
func (s Static) Assign(b, w, r int) []int {
	lo, hi := s.Range(b, w, r)
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

// MaxBlock returns the longest static assignment for (b, w). Every worker
// sizes its gather buffer with it so payloads match across the group.
func MaxBlock(b, w int) int {
	if b <= 0 || w <= 0 {
		return 0
	}
	lo, hi := Static{}.Range(b, w, w-1)
	return hi - lo
}

// Dynamic hands out one band per worker per collective round, in band
// order, until every band is taken.
type Dynamic struct{}

// Name implements Policy
func (Dynamic) Name() string { return "dynamic-unit" }

// Rounds returns ceil(b/w) rounds of w slots. Slot r of a round holds the
// band for worker r, or Unassigned once the bands run out.
func (Dynamic) Rounds(b, w int) [][]int {
	if b <= 0 || w <= 0 {
		return nil
	}
	n := (b + w - 1) / w
	rounds := make([][]int, n)
	next := 0
	for i := range rounds {
		slots := make([]int, w)
		for r := range slots {
			if next < b {
				slots[r] = next
				next++
			} else {
				slots[r] = Unassigned
			}
		}
		rounds[i] = slots
	}
	return rounds
}

// Assign implements Policy
func (d Dynamic) Assign(b, w, r int) []int {
	if r < 0 || r >= w {
		return []int{}
	}
	out := make([]int, 0)
	for _, round := range d.Rounds(b, w) {
		if round[r] != Unassigned {
			out = append(out, round[r])
		}
	}
	return out
}

// Assignment maps worker rank to its bands for one file
type Assignment map[int][]int

// Assign computes the full assignment of p for (b, w)
func Assign(p Policy, b, w int) Assignment {
	a := make(Assignment, w)
	for r := 0; r < w; r++ {
		a[r] = p.Assign(b, w, r)
	}
	return a
}

// Cover checks that a is a total, non-overlapping cover of [0, b)
func (a Assignment) Cover(b int) error {
	owner := make([]int, b)
	for i := range owner {
		owner[i] = -1
	}
	for r, bands := range a {
		for _, i := range bands {
			if i < 0 || i >= b {
				return fmt.Errorf("worker %d assigned band %d outside [0,%d)", r, i, b)
			}
			if owner[i] != -1 {
				return fmt.Errorf("band %d assigned to workers %d and %d", i, owner[i], r)
			}
			owner[i] = r
		}
	}
	for i, r := range owner {
		if r == -1 {
			return fmt.Errorf("band %d not assigned", i)
		}
	}
	return nil
}
