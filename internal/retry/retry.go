// Package retry implements bounded exponential backoff shared by the link checker
// and the webhook transport.
package retry

import (
	"context"
	"math"
	"time"
)

// Config represents retry configuration
type Config struct {
	MaxAttempts    int     `json:"max_attempts" bson:"max_attempts"`
	InitialDelayMs int     `json:"initial_delay_ms" bson:"initial_delay_ms"`
	MaxDelayMs     int     `json:"max_delay_ms" bson:"max_delay_ms"`
	Multiplier     float64 `json:"multiplier" bson:"multiplier"`
}

// SetDefaults sets default values for retry configuration
func (c *Config) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelayMs == 0 {
		c.InitialDelayMs = 1000
	}
	if c.MaxDelayMs == 0 {
		c.MaxDelayMs = 30000
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
}

// Strategy handles exponential backoff retry logic
type Strategy struct {
	config Config
}

// NewStrategy creates a new retry strategy
func NewStrategy(config Config) *Strategy {
	config.SetDefaults()
	return &Strategy{
		config: config,
	}
}

// CalculateDelay calculates the delay for a given attempt using exponential backoff
// Formula: delay = min(initial_delay * (multiplier ^ (attempt-1)), max_delay)
func (s *Strategy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delayMs := float64(s.config.InitialDelayMs) * math.Pow(s.config.Multiplier, float64(attempt-1))

	if delayMs > float64(s.config.MaxDelayMs) {
		delayMs = float64(s.config.MaxDelayMs)
	}

	return time.Duration(delayMs) * time.Millisecond
}

// CanRetry reports whether another attempt is allowed after attempt
func (s *Strategy) CanRetry(attempt int) bool {
	return attempt < s.config.MaxAttempts
}

// ShouldRetryHTTP determines if an HTTP delivery should be retried based on the error type
func (s *Strategy) ShouldRetryHTTP(attempt int, statusCode int, err error) bool {
	if !s.CanRetry(attempt) {
		return false
	}

	// Network error
	if err != nil && statusCode == 0 {
		return true
	}

	switch {
	case statusCode >= 500 && statusCode < 600:
		return true
	case statusCode == 429:
		return true
	case statusCode >= 400 && statusCode < 500:
		return false
	case statusCode >= 300:
		return true
	}

	return false
}

// MaxAttempts returns the maximum number of attempts
func (s *Strategy) MaxAttempts() int {
	return s.config.MaxAttempts
}

// Wait sleeps for the backoff delay after attempt, returning early if ctx is done
func (s *Strategy) Wait(ctx context.Context, attempt int) error {
	delay := s.CalculateDelay(attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
