package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/bandmean/internal/stats"
)

// Task reduces one band of one file on the local worker
type Task struct {
	// Band is the band index this task reduces
	Band int

	// Execute decodes and reduces the band
	Execute func(ctx context.Context) (stats.Partial, error)
}

// Result represents the outcome of executing a task
type Result struct {
	// Band identifies which band this result is for
	Band int

	// Partial is the band statistic (zero if an error occurred)
	Partial stats.Partial

	// Error contains any error that occurred during execution (nil if successful)
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration
}

// Pool runs band tasks of a single worker concurrently. It never crosses
// worker boundaries: results are merged by the caller before the worker
// enters its next collective.
type Pool struct {
	workers int
	logger  *slog.Logger

	mu    sync.Mutex
	tasks []Task

	running atomic.Bool
}

// NewPool creates a pool running at most workers bands at once (minimum 1)
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		workers: workers,
		tasks:   make([]Task, 0),
		logger:  logger,
	}
}

// Submit queues a band task. It fails while the pool is executing.
func (p *Pool) Submit(task Task) error {
	if p.running.Load() {
		return fmt.Errorf("pool is running, cannot submit new tasks")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if task.Band < 0 {
		return fmt.Errorf("task must have a band index, got %d", task.Band)
	}

	if task.Execute == nil {
		return fmt.Errorf("task must have an execute function")
	}

	p.tasks = append(p.tasks, task)
	p.logger.Debug("task submitted", "band", task.Band, "total_tasks", len(p.tasks))

	return nil
}

// ExecuteWithProgress runs every submitted task and returns one result
// per task, in submission order. progressFn, when non-nil, is called after
// every finished band with (completed, total).
func (p *Pool) ExecuteWithProgress(ctx context.Context, progressFn func(completed, total int)) []Result {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Error("pool is already running")
		return []Result{}
	}
	defer p.running.Store(false)

	p.mu.Lock()
	taskCount := len(p.tasks)
	if taskCount == 0 {
		p.mu.Unlock()
		p.logger.Debug("no tasks to execute")
		return []Result{}
	}

	tasksCopy := make([]Task, len(p.tasks))
	copy(tasksCopy, p.tasks)
	p.mu.Unlock()

	startTime := time.Now()

	taskChan := make(chan taskWithIndex, taskCount)
	resultChan := make(chan resultWithIndex, taskCount)

	var completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, taskCount); i++ {
		wg.Add(1)
		go p.worker(ctx, i, taskChan, resultChan, &wg, &completed, taskCount, progressFn)
	}

queue:
	for i, task := range tasksCopy {
		select {
		case taskChan <- taskWithIndex{task: task, index: i}:
		case <-ctx.Done():
			p.logger.Warn("context cancelled while queuing band tasks", "queued", i, "total", taskCount)
			break queue
		}
	}
	close(taskChan)
	wg.Wait()
	close(resultChan)

	results := make([]Result, taskCount)
	done := make([]bool, taskCount)

	for res := range resultChan {
		if res.index >= 0 && res.index < taskCount {
			results[res.index] = res.result
			done[res.index] = true
		}
	}

	// Tasks that never ran (context cancelled before execution)
	for i := range results {
		if !done[i] {
			results[i] = Result{
				Band:  tasksCopy[i].Band,
				Error: fmt.Errorf("task not executed: %w", ctx.Err()),
			}
		}
	}

	p.logger.Debug("band tasks completed",
		"total", taskCount,
		"failed", CountFailed(results),
		"duration", time.Since(startTime))

	return results
}

func (p *Pool) worker(
	ctx context.Context,
	workerID int,
	taskChan <-chan taskWithIndex,
	resultChan chan<- resultWithIndex,
	wg *sync.WaitGroup,
	completed *atomic.Int32,
	total int,
	progressFn func(completed, total int),
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case taskItem, ok := <-taskChan:
			if !ok {
				return
			}

			result := p.executeTask(ctx, taskItem.task)

			select {
			case resultChan <- resultWithIndex{result: result, index: taskItem.index}:
			case <-ctx.Done():
				p.logger.Warn("context cancelled while sending result",
					"goroutine", workerID,
					"band", taskItem.task.Band)
				return
			}

			completedCount := completed.Add(1)
			if progressFn != nil {
				progressFn(int(completedCount), total)
			}
		}
	}
}

func (p *Pool) executeTask(ctx context.Context, task Task) Result {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return Result{
			Band:     task.Band,
			Error:    fmt.Errorf("task cancelled before execution: %w", ctx.Err()),
			Duration: time.Since(startTime),
		}
	default:
	}

	partial, err := task.Execute(ctx)
	duration := time.Since(startTime)

	if err != nil {
		p.logger.Warn("band task failed", "band", task.Band, "error", err, "duration", duration)
		return Result{Band: task.Band, Error: err, Duration: duration}
	}

	p.logger.Debug("band reduced",
		"band", task.Band,
		"valid", partial.Count,
		"duration", duration)

	return Result{Band: task.Band, Partial: partial, Duration: duration}
}

// TaskCount returns the number of tasks currently queued
func (p *Pool) TaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// WorkerCount returns the number of goroutines in the pool
func (p *Pool) WorkerCount() int {
	return p.workers
}

// taskWithIndex pairs a task with its submission index
type taskWithIndex struct {
	task  Task
	index int
}

// resultWithIndex pairs a result with its submission index
type resultWithIndex struct {
	result Result
	index  int
}
