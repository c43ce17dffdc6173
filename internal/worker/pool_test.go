package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/model"
)

func jobsFor(urls ...string) []Job {
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{Target: model.LinkTarget{URL: u, SourcePostID: "p1"}})
	}
	return jobs
}

func TestRun_OneResultPerJobInOrder(t *testing.T) {
	jobs := jobsFor("https://a", "https://b", "https://c", "https://d")

	results := Run(context.Background(), 2, jobs, func(_ context.Context, job Job) Result {
		return Result{Outcome: model.LinkCheckOutcome{URL: job.Target.URL}}
	})

	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, jobs[i].Target.URL, r.Outcome.URL)
		assert.Equal(t, i, r.Index)
	}
}

func TestRun_Empty(t *testing.T) {
	results := Run(context.Background(), 4, nil, func(context.Context, Job) Result {
		t.Fatal("should not be called")
		return Result{}
	})
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	jobs := jobsFor("1", "2", "3", "4", "5", "6", "7", "8")

	Run(context.Background(), 3, jobs, func(context.Context, Job) Result {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return Result{}
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(3), peak.Load())
}

func TestRun_CancelledContextStillYieldsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := jobsFor("https://a", "https://b")
	results := Run(ctx, 1, jobs, func(ctx context.Context, job Job) Result {
		if ctx.Err() != nil {
			return Result{Outcome: model.LinkCheckOutcome{URL: job.Target.URL, ErrorKind: model.ErrorKindTimeout}}
		}
		return Result{Outcome: model.LinkCheckOutcome{URL: job.Target.URL}}
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.ErrorKindTimeout, r.Outcome.ErrorKind)
	}
}

func TestWorkerPool_SubmitAndResults(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, 3)
	pool.SetProcessor(func(_ context.Context, job Job) Result {
		return Result{Outcome: model.LinkCheckOutcome{URL: job.Target.URL}}
	})
	pool.Start()

	for i, job := range jobsFor("https://a", "https://b", "https://c") {
		job.Index = i
		require.NoError(t, pool.Submit(job))
	}
	pool.Close()
	pool.Wait()

	var urls []string
	for r := range pool.Results() {
		urls = append(urls, r.Outcome.URL)
	}
	assert.ElementsMatch(t, []string{"https://a", "https://b", "https://c"}, urls)
}

func TestWorkerPool_SubmitFullQueueStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, 1)

	// no workers started, so the second job cannot be queued
	require.NoError(t, pool.Submit(Job{}))
	cancel()

	assert.ErrorIs(t, pool.Submit(Job{}), context.Canceled)
}
