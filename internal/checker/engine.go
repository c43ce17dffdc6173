// Package checker fans posts out through link extraction and probing under a bounded
// worker pool and aggregates the outcomes of one run.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/retry"
	"github.com/dandantas/linkpatrol/internal/worker"
)

const (
	DefaultConcurrency  = 20
	DefaultProbeTimeout = 10 * time.Second
	DefaultRunDeadline  = 10 * time.Minute
	DefaultMaxAttempts  = 2
)

// Extractor yields the distinct hyperlinks of one post body
type Extractor interface {
	Extract(html string) []string
}

// Prober performs one bounded-time liveness check
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) model.ProbeResult
}

// Options tunes the engine
type Options struct {
	Concurrency  int
	ProbeTimeout time.Duration
	RunDeadline  time.Duration
	Retry        retry.Config
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.RunDeadline <= 0 {
		o.RunDeadline = DefaultRunDeadline
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if o.Retry.InitialDelayMs <= 0 {
		o.Retry.InitialDelayMs = 500
	}
	if o.Retry.MaxDelayMs <= 0 {
		o.Retry.MaxDelayMs = 5000
	}
}

// Engine checks every link of a batch of posts. It has no side effects beyond its
// return value, log lines and metrics.
type Engine struct {
	extractor Extractor
	prober    Prober
	opts      Options
	retry     *retry.Strategy
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewEngine creates a checker engine. m may be nil.
func NewEngine(extractor Extractor, prober Prober, opts Options, m *metrics.Metrics) *Engine {
	opts.setDefaults()
	return &Engine{
		extractor: extractor,
		prober:    prober,
		opts:      opts,
		retry:     retry.NewStrategy(opts.Retry),
		metrics:   m,
		now:       time.Now,
	}
}

// CheckPosts extracts, probes and aggregates the links of posts.
//
// Links still outstanding when the run deadline passes are recorded as timeouts, so
// WorkingLinks + len(DeadLinks) == TotalLinks holds for every returned result. If ctx
// itself is cancelled the partial aggregate is discarded and an error is returned.
func (e *Engine) CheckPosts(ctx context.Context, posts []model.Post) (*model.LinkCheckResult, error) {
	start := e.now()

	targets := e.collectTargets(posts)

	slog.Info("Checking links",
		"posts", len(posts),
		"links", len(targets),
		"concurrency", e.opts.Concurrency,
	)

	runCtx, cancel := context.WithTimeout(ctx, e.opts.RunDeadline)
	defer cancel()

	jobs := make([]worker.Job, len(targets))
	for i, target := range targets {
		jobs[i] = worker.Job{Target: target}
	}

	results := worker.Run(runCtx, e.opts.Concurrency, jobs, e.checkLink)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("link check interrupted after %d links: %w", len(results), err)
	}

	result := &model.LinkCheckResult{
		TotalLinks:   len(results),
		DeadLinks:    []model.LinkCheckOutcome{},
		PostsChecked: len(posts),
	}
	for _, r := range results {
		if r.Outcome.IsWorking() {
			result.WorkingLinks++
			continue
		}
		result.DeadLinks = append(result.DeadLinks, r.Outcome)
	}
	result.ProcessingTimeMs = e.now().Sub(start).Milliseconds()

	if runCtx.Err() != nil {
		slog.Warn("Run deadline reached, outstanding links counted as timeouts",
			"deadline", e.opts.RunDeadline.String(),
		)
	}

	slog.Info("Link check finished",
		"total_links", result.TotalLinks,
		"working_links", result.WorkingLinks,
		"dead_links", len(result.DeadLinks),
		"duration_ms", result.ProcessingTimeMs,
	)

	return result, nil
}

// collectTargets extracts links from every post, deduplicating per (post, url)
func (e *Engine) collectTargets(posts []model.Post) []model.LinkTarget {
	type key struct{ postID, url string }

	seen := make(map[key]struct{})
	targets := make([]model.LinkTarget, 0)

	for _, post := range posts {
		for _, link := range e.extractPost(post) {
			k := key{postID: post.ID, url: link}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			targets = append(targets, model.LinkTarget{
				URL:             link,
				SourcePostID:    post.ID,
				SourcePostTitle: post.Title,
			})
		}
	}

	return targets
}

// extractPost never fails: a panic while parsing one post yields zero links for it
func (e *Engine) extractPost(post model.Post) (links []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Link extraction failed, skipping post",
				"post_id", post.ID,
				"error", r,
			)
			links = nil
		}
	}()

	return e.extractor.Extract(post.ContentHTML)
}

// checkLink probes one target, retrying transient failures while the run deadline allows
func (e *Engine) checkLink(ctx context.Context, job worker.Job) worker.Result {
	target := job.Target

	if ctx.Err() != nil {
		return worker.Result{Outcome: e.record(target, model.Dead(model.ErrorKindTimeout, 0, 0), 0)}
	}

	var (
		result   model.ProbeResult
		attempts int
	)
	for attempt := 1; ; attempt++ {
		attempts = attempt
		result = e.prober.Probe(ctx, target.URL, e.opts.ProbeTimeout)

		if result.IsWorking() || !result.ErrorKind.Transient() || !e.retry.CanRetry(attempt) {
			break
		}

		slog.Debug("Retrying link",
			"url", target.URL,
			"attempt", attempt,
			"error_kind", string(result.ErrorKind),
		)

		if err := e.retry.Wait(ctx, attempt); err != nil {
			break
		}
	}

	return worker.Result{Outcome: e.record(target, result, attempts)}
}

func (e *Engine) record(target model.LinkTarget, result model.ProbeResult, attempts int) model.LinkCheckOutcome {
	kind := string(result.ErrorKind)
	if result.IsWorking() {
		kind = string(model.ProbeWorking)
	}
	e.metrics.ObserveProbe(kind, result.Latency)

	return model.NewOutcome(target, result, attempts, e.now())
}
