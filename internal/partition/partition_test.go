package partition

import (
	"reflect"
	"testing"
)

func TestStatic_Assign(t *testing.T) {
	tests := []struct {
		name string
		b, w int
		want [][]int
	}{
		{name: "three bands two workers", b: 3, w: 2, want: [][]int{{0}, {1, 2}}},
		{name: "even split", b: 4, w: 2, want: [][]int{{0, 1}, {2, 3}}},
		{name: "single worker", b: 3, w: 1, want: [][]int{{0, 1, 2}}},
		{name: "fewer bands than workers", b: 2, w: 4, want: [][]int{{}, {}, {}, {0, 1}}},
		{name: "no bands", b: 0, w: 3, want: [][]int{{}, {}, {}}},
		{name: "remainder to last", b: 7, w: 3, want: [][]int{{0, 1}, {2, 3}, {4, 5, 6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for r := 0; r < tt.w; r++ {
				got := Static{}.Assign(tt.b, tt.w, r)
				if !reflect.DeepEqual(got, tt.want[r]) {
					t.Errorf("worker %d: got %v, want %v", r, got, tt.want[r])
				}
			}
		})
	}
}

func TestStatic_RangeOutOfBounds(t *testing.T) {
	for _, r := range []int{-1, 2, 5} {
		lo, hi := Static{}.Range(4, 2, r)
		if lo != 0 || hi != 0 {
			t.Errorf("Range(4, 2, %d) = [%d, %d), want empty", r, lo, hi)
		}
	}
}

func TestMaxBlock(t *testing.T) {
	tests := []struct {
		b, w, want int
	}{
		{b: 3, w: 2, want: 2},
		{b: 4, w: 2, want: 2},
		{b: 7, w: 3, want: 3},
		{b: 2, w: 4, want: 2},
		{b: 0, w: 4, want: 0},
		{b: 5, w: 0, want: 0},
	}

	for _, tt := range tests {
		if got := MaxBlock(tt.b, tt.w); got != tt.want {
			t.Errorf("MaxBlock(%d, %d) = %d, want %d", tt.b, tt.w, got, tt.want)
		}
		for r := 0; r < tt.w; r++ {
			if n := len(Static{}.Assign(tt.b, tt.w, r)); n > tt.want {
				t.Errorf("worker %d of (%d, %d) has %d bands, more than MaxBlock", r, tt.b, tt.w, n)
			}
		}
	}
}

func TestDynamic_Rounds(t *testing.T) {
	tests := []struct {
		name string
		b, w int
		want [][]int
	}{
		{name: "partial last round", b: 5, w: 2, want: [][]int{{0, 1}, {2, 3}, {4, Unassigned}}},
		{name: "exact rounds", b: 4, w: 2, want: [][]int{{0, 1}, {2, 3}}},
		{name: "fewer bands than workers", b: 1, w: 3, want: [][]int{{0, Unassigned, Unassigned}}},
		{name: "no bands", b: 0, w: 3, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dynamic{}.Rounds(tt.b, tt.w)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rounds(%d, %d) = %v, want %v", tt.b, tt.w, got, tt.want)
			}
		})
	}
}

func TestDynamic_Assign(t *testing.T) {
	got := Assign(Dynamic{}, 5, 2)
	want := Assignment{0: {0, 2, 4}, 1: {1, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Assign(Dynamic, 5, 2) = %v, want %v", got, want)
	}

	if out := (Dynamic{}).Assign(5, 2, 7); len(out) != 0 {
		t.Errorf("out of range rank got %v", out)
	}
}

func TestCover(t *testing.T) {
	policies := []Policy{Static{}, Dynamic{}}

	for _, p := range policies {
		t.Run(p.Name(), func(t *testing.T) {
			for b := 0; b <= 12; b++ {
				for w := 1; w <= 6; w++ {
					if err := Assign(p, b, w).Cover(b); err != nil {
						t.Errorf("(b=%d, w=%d): %v", b, w, err)
					}
				}
			}
		})
	}
}

func TestCover_Errors(t *testing.T) {
	tests := []struct {
		name string
		a    Assignment
	}{
		{name: "overlap", a: Assignment{0: {0, 1}, 1: {1, 2}}},
		{name: "gap", a: Assignment{0: {0}, 1: {2}}},
		{name: "out of range", a: Assignment{0: {0, 1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.a.Cover(3); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
