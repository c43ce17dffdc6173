// Package prober performs bounded-time liveness checks of single URLs.
package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/dandantas/linkpatrol/internal/model"
)

const (
	// DefaultUserAgent identifies the checker to remote sites
	DefaultUserAgent = "linkpatrol/1.0 (+dead link checker)"

	defaultMaxBodyRead = 64 << 10
)

// Prober checks a single URL. It never retries; retry policy belongs to the caller.
type Prober struct {
	client      *http.Client
	limiter     *HostLimiter
	userAgent   string
	maxBodyRead int64
}

// Option configures a Prober
type Option func(*Prober)

// WithClient sets the HTTP client used for probes
func WithClient(client *http.Client) Option {
	return func(p *Prober) { p.client = client }
}

// WithHostLimiter throttles probes per host
func WithHostLimiter(limiter *HostLimiter) Option {
	return func(p *Prober) { p.limiter = limiter }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(p *Prober) {
		if userAgent != "" {
			p.userAgent = userAgent
		}
	}
}

// New creates a prober
func New(opts ...Option) *Prober {
	p := &Prober{
		client:      NewHTTPClient(60 * time.Second),
		userAgent:   DefaultUserAgent,
		maxBodyRead: defaultMaxBodyRead,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks rawURL within timeout. HEAD is tried first; when the server rejects
// HEAD a GET is issued and only the first part of the body is read.
//
// 200-399 is working, 400-599 is dead with "http_<status>", a missed deadline is
// "timeout" and any other transport failure is "network_error".
func (p *Prober) Probe(ctx context.Context, rawURL string, timeout time.Duration) model.ProbeResult {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return model.Dead(model.ErrorKindNetwork, 0, 0)
	}

	// The host limiter waits under the caller's context; the probe timeout starts
	// once the request may go out.
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, rawURL); err != nil {
			return model.Dead(model.ErrorKindTimeout, 0, 0)
		}
	}

	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	statusCode, err := p.do(ctx, http.MethodHead, rawURL)
	if headRejected(statusCode, err) && ctx.Err() == nil {
		slog.Debug("HEAD rejected, falling back to GET",
			"url", rawURL,
			"status_code", statusCode,
		)
		statusCode, err = p.do(ctx, http.MethodGet, rawURL)
	}

	latency := time.Since(start)
	if err != nil {
		return classifyError(ctx, err, latency)
	}

	return classifyStatus(statusCode, latency)
}

func (p *Prober) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if method == http.MethodGet {
		_, _ = io.CopyN(io.Discard, resp.Body, p.maxBodyRead)
	}

	return resp.StatusCode, nil
}

// headRejected reports whether a HEAD response means "try GET instead"
func headRejected(statusCode int, err error) bool {
	if err != nil {
		// Some servers drop the connection on HEAD instead of answering.
		return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	}
	switch statusCode {
	case http.StatusBadRequest,
		http.StatusForbidden,
		http.StatusMethodNotAllowed,
		http.StatusNotAcceptable,
		http.StatusNotImplemented:
		return true
	}
	return false
}

func classifyStatus(statusCode int, latency time.Duration) model.ProbeResult {
	if statusCode >= 200 && statusCode <= 399 {
		return model.Working(statusCode, latency)
	}
	return model.Dead(model.HTTPErrorKind(statusCode), statusCode, latency)
}

func classifyError(ctx context.Context, err error, latency time.Duration) model.ProbeResult {
	if isTimeout(ctx, err) {
		return model.Dead(model.ErrorKindTimeout, 0, latency)
	}
	return model.Dead(model.ErrorKindNetwork, 0, latency)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
