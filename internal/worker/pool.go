package worker

import (
	"context"
	"log/slog"
	"sync"
)

// ProcessFunc checks one link target and always produces an outcome
type ProcessFunc func(ctx context.Context, job Job) Result

// WorkerPool manages a pool of worker goroutines for concurrent link checking
type WorkerPool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	processFn ProcessFunc
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWorkerPool creates a new worker pool. Both queues are sized to jobQueueSize so
// a batch of that many jobs can be submitted and drained without blocking.
func NewWorkerPool(ctx context.Context, workers int, jobQueueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers: workers,
		jobs:    make(chan Job, jobQueueSize),
		results: make(chan Result, jobQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetProcessor sets the function that will process jobs
func (wp *WorkerPool) SetProcessor(fn ProcessFunc) {
	wp.processFn = fn
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Debug("Starting worker pool", "workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Wait blocks until every submitted job has produced a result, then closes the results channel
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
	slog.Debug("Worker pool stopped")
}

// Submit queues a job. A job is always accepted while the queue has room; otherwise
// Submit blocks until there is room or the pool's context ends.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobs <- job:
		return nil
	default:
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.results
}

// Run submits every job, waits for all of them and returns results in submission order.
// Every job yields exactly one result; when the context ends, the process function is
// still called so it can record a timeout outcome.
func Run(ctx context.Context, workers int, jobs []Job, fn ProcessFunc) []Result {
	if len(jobs) == 0 {
		return []Result{}
	}

	pool := NewWorkerPool(ctx, workers, len(jobs))
	pool.SetProcessor(fn)
	pool.Start()

	ordered := make([]Result, len(jobs))
	for i, job := range jobs {
		job.Index = i
		if err := pool.Submit(job); err != nil {
			// not queued; fn still records an outcome for it
			ordered[i] = fn(ctx, job)
			ordered[i].Index = i
		}
	}
	pool.Close()
	pool.Wait()

	for result := range pool.Results() {
		ordered[result.Index] = result
	}
	return ordered
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processFn(wp.ctx, job)
		result.Index = job.Index

		// results is buffered to the batch size
		wp.results <- result
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

