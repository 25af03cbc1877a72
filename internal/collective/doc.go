// Package collective provides a fixed-size group of cooperating workers
// that communicate only through blocking collective operations.
//
// A Group of N ranks runs N goroutines. Each goroutine receives a *Comm
// carrying its rank and the group size, and exchanges data with the others
// exclusively through Barrier, Broadcast, Scatter, Gather and Reduce.
// There is no shared mutable state between ranks: Gather, Scatter,
// BroadcastSlice and Reduce copy payloads at the rendezvous.
//
// # Lockstep Contract
//
// Every rank must call the same sequence of collectives with the same root,
// the same payload type and, for Gather and Reduce, the same payload
// length. The last rank to arrive at a round validates it. Any divergence
// aborts the whole group with ErrCollectiveMismatch:
//
//	err := group.Run(ctx, func(ctx context.Context, c *collective.Comm) error {
//	    sums, err := collective.Reduce(ctx, c, local, collective.Sum, 0)
//	    if err != nil {
//	        return err
//	    }
//	    if c.Rank() == 0 {
//	        fmt.Println(sums)
//	    }
//	    return nil
//	})
//
// A rank that returns while others still wait in a round is also a
// mismatch. A rank that returns an error, or a cancelled context, aborts
// the group with ErrAborted. In both cases every blocked rank is released
// and Run reports the first cause.
//
// # Failure Semantics
//
// Aborting is terminal. A group does not recover from a lost or divergent
// rank; callers that need per-item failure tolerance must agree on it
// before entering the next collective, for example with AllTrue.
package collective
