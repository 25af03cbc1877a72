package collective

import (
	"context"
	"fmt"
)

// Comm is one rank's handle on its group. A Comm must only be used by the
// goroutine Run started for it.
type Comm struct {
	g    *Group
	rank int
	seq  uint64
}

// Rank returns this worker's identity in [0, Size)
func (c *Comm) Rank() int {
	return c.rank
}

// Size returns the number of ranks in the group
func (c *Comm) Size() int {
	return c.g.size
}

// Abort tears down the whole group
func (c *Comm) Abort(cause error) {
	c.g.Abort(fmt.Errorf("rank %d: %w", c.rank, cause))
}

// Number is the element type Reduce can combine
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// ReduceOp folds two values
type ReduceOp int

const (
	Sum ReduceOp = iota
	Max
	Min
)

func (o ReduceOp) String() string {
	switch o {
	case Sum:
		return "sum"
	case Max:
		return "max"
	case Min:
		return "min"
	default:
		return fmt.Sprintf("reduce-op(%d)", int(o))
	}
}

// Barrier blocks until every rank has called it
func Barrier(ctx context.Context, c *Comm) error {
	_, err := c.g.exchange(ctx, c, OpBarrier, 0, struct{}{}, func(in []any) ([]any, error) {
		return make([]any, len(in)), nil
	})
	return err
}

// Broadcast returns root's value on every rank. Values of other ranks are
// ignored. Reference types are shared, so receivers must treat them as
// read-only; use BroadcastSlice to give every rank its own copy.
func Broadcast[T any](ctx context.Context, c *Comm, value T, root int) (T, error) {
	var zero T
	out, err := c.g.exchange(ctx, c, OpBroadcast, root, value, func(in []any) ([]any, error) {
		v, ok := in[root].(T)
		if !ok {
			return nil, fmt.Errorf("root payload is %T, want %T", in[root], zero)
		}
		outs := make([]any, len(in))
		for i := range outs {
			outs[i] = v
		}
		return outs, nil
	})
	if err != nil {
		return zero, err
	}
	return result[T](c, OpBroadcast, out)
}

// BroadcastSlice returns a private copy of root's slice on every rank
func BroadcastSlice[T any](ctx context.Context, c *Comm, values []T, root int) ([]T, error) {
	out, err := c.g.exchange(ctx, c, OpBroadcast, root, values, func(in []any) ([]any, error) {
		v, ok := in[root].([]T)
		if !ok {
			return nil, fmt.Errorf("root payload is %T, want %T", in[root], values)
		}
		outs := make([]any, len(in))
		for i := range outs {
			outs[i] = append([]T(nil), v...)
		}
		return outs, nil
	})
	if err != nil {
		return nil, err
	}
	return result[[]T](c, OpBroadcast, out)
}

// Scatter hands items[r] from root to rank r. Root must supply exactly
// Size items; other ranks pass nil.
func Scatter[T any](ctx context.Context, c *Comm, items []T, root int) (T, error) {
	var zero T
	out, err := c.g.exchange(ctx, c, OpScatter, root, items, func(in []any) ([]any, error) {
		v, ok := in[root].([]T)
		if !ok {
			return nil, fmt.Errorf("root payload is %T, want %T", in[root], items)
		}
		if len(v) != len(in) {
			return nil, fmt.Errorf("root scattered %d items to %d ranks", len(v), len(in))
		}
		outs := make([]any, len(in))
		for i := range outs {
			outs[i] = v[i]
		}
		return outs, nil
	})
	if err != nil {
		return zero, err
	}
	return result[T](c, OpScatter, out)
}

// Gather collects every rank's local buffer at root, indexed by rank.
// All buffers must have the same length. Non-root ranks receive nil.
func Gather[T any](ctx context.Context, c *Comm, local []T, root int) ([][]T, error) {
	out, err := c.g.exchange(ctx, c, OpGather, root, local, func(in []any) ([]any, error) {
		all := make([][]T, len(in))
		for r, v := range in {
			buf, ok := v.([]T)
			if !ok {
				return nil, fmt.Errorf("rank %d payload is %T, want %T", r, v, local)
			}
			if r > 0 && len(buf) != len(all[0]) {
				return nil, fmt.Errorf("rank %d sent %d items, rank 0 sent %d", r, len(buf), len(all[0]))
			}
			all[r] = append([]T(nil), buf...)
		}
		outs := make([]any, len(in))
		for i := range outs {
			outs[i] = [][]T(nil)
		}
		outs[root] = all
		return outs, nil
	})
	if err != nil {
		return nil, err
	}
	return result[[][]T](c, OpGather, out)
}

// Reduce folds every rank's buffer elementwise with op, in rank order, and
// returns the result at root. All buffers must have the same length.
// Non-root ranks receive nil.
func Reduce[T Number](ctx context.Context, c *Comm, local []T, op ReduceOp, root int) ([]T, error) {
	out, err := c.g.exchange(ctx, c, OpReduce, root, local, func(in []any) ([]any, error) {
		first, ok := in[0].([]T)
		if !ok {
			return nil, fmt.Errorf("rank 0 payload is %T, want %T", in[0], local)
		}
		acc := append([]T(nil), first...)
		for r := 1; r < len(in); r++ {
			buf, ok := in[r].([]T)
			if !ok {
				return nil, fmt.Errorf("rank %d payload is %T, want %T", r, in[r], local)
			}
			if len(buf) != len(acc) {
				return nil, fmt.Errorf("rank %d sent %d items, rank 0 sent %d", r, len(buf), len(acc))
			}
			for i, v := range buf {
				acc[i] = fold(op, acc[i], v)
			}
		}
		outs := make([]any, len(in))
		for i := range outs {
			outs[i] = []T(nil)
		}
		outs[root] = acc
		return outs, nil
	})
	if err != nil {
		return nil, err
	}
	return result[[]T](c, OpReduce, out)
}

// result asserts a round output. A failed assertion means ranks disagreed
// on the payload type and the combine step ran with another rank's type.
func result[T any](c *Comm, op Op, out any) (T, error) {
	v, ok := out.(T)
	if !ok {
		var zero T
		err := fmt.Errorf("%w: rank %d expected %T from %s, got %T", ErrCollectiveMismatch, c.rank, zero, op, out)
		c.g.Abort(err)
		return zero, err
	}
	return v, nil
}

func fold[T Number](op ReduceOp, a, b T) T {
	switch op {
	case Max:
		if b > a {
			return b
		}
		return a
	case Min:
		if b < a {
			return b
		}
		return a
	default:
		return a + b
	}
}

// AllTrue reports on every rank whether every rank passed ok. It costs a
// gather to root followed by a broadcast of the verdict.
func AllTrue(ctx context.Context, c *Comm, ok bool, root int) (bool, error) {
	votes, err := Gather(ctx, c, []bool{ok}, root)
	if err != nil {
		return false, err
	}

	verdict := true
	if c.rank == root {
		for _, v := range votes {
			verdict = verdict && v[0]
		}
	}
	return Broadcast(ctx, c, verdict, root)
}
