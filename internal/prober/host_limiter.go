package prober

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter throttles probes per target host so one site linked many times
// is not hit with a burst of requests.
type HostLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	hosts map[string]*rate.Limiter
}

// NewHostLimiter creates a per-host limiter
// rps: requests per second per host
// burst: maximum burst size per host
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}

	return &HostLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to rawURL's host is allowed
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil // invalid URLs are classified by the prober
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}

	h.mu.Lock()
	limiter, ok := h.hosts[host]
	if !ok {
		limiter = rate.NewLimiter(h.limit, h.burst)
		h.hosts[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
