// Package executor reduces the bands assigned to one worker concurrently.
//
// A Pool is private to a single rank. The engine submits one Task per
// assigned band, calls ExecuteWithProgress, and merges the ordered Results
// before the rank enters its next collective, so band-level parallelism
// never changes the collective schedule seen by the other ranks.
//
//	pool := executor.NewPool(4, logger)
//	for _, b := range bands {
//		pool.Submit(executor.Task{Band: b, Execute: reduce(b)})
//	}
//	results := pool.ExecuteWithProgress(ctx, nil)
//	if err := executor.FirstError(results); err != nil {
//		return err
//	}
//	partials := executor.Partials(results)
//
// Results are returned in submission order. Tasks that never ran because
// the context was cancelled carry an error wrapping ctx.Err().
package executor
