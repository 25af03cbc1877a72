package collective

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrCollectiveMismatch indicates ranks diverged: a different operation,
	// root, payload type or payload length in the same round, or a rank that
	// left while others still expected it. It terminates the whole group.
	ErrCollectiveMismatch = errors.New("collective mismatch")

	// ErrAborted indicates the group was torn down while a rank was inside
	// or about to enter a collective
	ErrAborted = errors.New("process group aborted")
)

// Op names a collective operation
type Op int

const (
	OpBarrier Op = iota
	OpBroadcast
	OpScatter
	OpGather
	OpReduce
)

func (o Op) String() string {
	switch o {
	case OpBarrier:
		return "barrier"
	case OpBroadcast:
		return "broadcast"
	case OpScatter:
		return "scatter"
	case OpGather:
		return "gather"
	case OpReduce:
		return "reduce"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Group is a fixed-size set of ranks that synchronise only through
// collectives. Each Run launches one goroutine per rank.
type Group struct {
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	rounds map[uint64]*round
	left   []bool

	abortCh   chan struct{}
	abortOnce *sync.Once
	abortErr  error
}

// round is the rendezvous state of one collective call
type round struct {
	seq      uint64
	op       Op
	root     int
	inputs   []any
	arrived  int
	departed int
	outputs  []any
	done     chan struct{}
}

// combineFunc turns every rank's input into every rank's output. It runs
// once per round, on the last rank to arrive.
type combineFunc func(inputs []any) ([]any, error)

// NewGroup creates a group of size ranks. size must be > 0, otherwise it
// defaults to 1.
func NewGroup(size int, logger *slog.Logger) *Group {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Group{size: size, logger: logger}
	g.reset()
	return g
}

// Size returns the number of ranks
func (g *Group) Size() int {
	return g.size
}

// Run executes fn once per rank and waits for all of them. The first rank
// error aborts the group, so ranks blocked in a collective return instead
// of waiting forever. Run returns the abort cause; it wraps
// ErrCollectiveMismatch for divergent ranks and ErrAborted otherwise.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	g.reset()

	eg, gctx := errgroup.WithContext(ctx)
	for r := 0; r < g.size; r++ {
		c := &Comm{g: g, rank: r}
		eg.Go(func() error {
			err := fn(gctx, c)
			if err != nil {
				g.Abort(fmt.Errorf("rank %d: %w", c.rank, err))
				return err
			}
			g.leave(c.rank)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		// Report the first cause, not whichever rank returned first
		if cause := g.aborted(); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

// Abort tears the group down with cause. Every pending and future
// collective returns an error wrapping ErrAborted or cause.
func (g *Group) Abort(cause error) {
	g.abortOnce.Do(func() {
		g.mu.Lock()
		g.abortErr = cause
		g.mu.Unlock()
		close(g.abortCh)
		g.logger.Debug("process group aborted", "cause", cause)
	})
}

// Err returns the abort cause, or nil while the group is healthy
func (g *Group) Err() error {
	select {
	case <-g.abortCh:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.abortErr
	default:
		return nil
	}
}

func (g *Group) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rounds = make(map[uint64]*round)
	g.left = make([]bool, g.size)
	g.abortCh = make(chan struct{})
	g.abortOnce = &sync.Once{}
	g.abortErr = nil
}

// leave records that rank has returned. A round still waiting for it can
// never complete.
func (g *Group) leave(rank int) {
	g.mu.Lock()
	g.left[rank] = true
	var stuck *round
	for _, r := range g.rounds {
		if r.arrived < g.size && r.inputs[rank] == nil {
			stuck = r
			break
		}
	}
	g.mu.Unlock()

	if stuck != nil {
		g.Abort(fmt.Errorf("%w: rank %d exited while %s round %d was pending",
			ErrCollectiveMismatch, rank, stuck.op, stuck.seq))
	}
}

func (g *Group) aborted() error {
	err := g.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCollectiveMismatch) || errors.Is(err, ErrAborted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAborted, err)
}

// exchange is the rendezvous every collective goes through
func (g *Group) exchange(ctx context.Context, c *Comm, op Op, root int, input any, combine combineFunc) (any, error) {
	if err := g.aborted(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		g.Abort(err)
		return nil, g.aborted()
	}
	if root < 0 || root >= g.size {
		err := fmt.Errorf("%w: %s root %d outside group of %d", ErrCollectiveMismatch, op, root, g.size)
		g.Abort(err)
		return nil, err
	}

	seq := c.seq
	c.seq++

	g.mu.Lock()
	for r, gone := range g.left {
		if gone {
			g.mu.Unlock()
			err := fmt.Errorf("%w: rank %d entered %s round %d after rank %d exited",
				ErrCollectiveMismatch, c.rank, op, seq, r)
			g.Abort(err)
			return nil, err
		}
	}

	rd, ok := g.rounds[seq]
	if !ok {
		rd = &round{
			seq:    seq,
			op:     op,
			root:   root,
			inputs: make([]any, g.size),
			done:   make(chan struct{}),
		}
		g.rounds[seq] = rd
	}
	if rd.op != op || rd.root != root {
		g.mu.Unlock()
		err := fmt.Errorf("%w: round %d: rank %d called %s(root=%d), others called %s(root=%d)",
			ErrCollectiveMismatch, seq, c.rank, op, root, rd.op, rd.root)
		g.Abort(err)
		return nil, err
	}

	// nil marks "not arrived", so wrap the payload
	rd.inputs[c.rank] = payload{input}
	rd.arrived++
	if rd.arrived == g.size {
		unwrapped := make([]any, g.size)
		for i, in := range rd.inputs {
			unwrapped[i] = in.(payload).v
		}
		outputs, err := combine(unwrapped)
		if err != nil {
			g.mu.Unlock()
			err = fmt.Errorf("%w: %s round %d: %w", ErrCollectiveMismatch, op, seq, err)
			g.Abort(err)
			return nil, err
		}
		rd.outputs = outputs
		close(rd.done)
		g.logger.Debug("collective round complete", "op", op.String(), "round", seq, "root", root)
	}
	g.mu.Unlock()

	select {
	case <-rd.done:
	case <-g.abortCh:
		return nil, g.aborted()
	case <-ctx.Done():
		g.Abort(ctx.Err())
		return nil, g.aborted()
	}

	g.mu.Lock()
	out := rd.outputs[c.rank]
	rd.departed++
	if rd.departed == g.size {
		delete(g.rounds, seq)
	}
	g.mu.Unlock()

	return out, nil
}

type payload struct {
	v any
}
