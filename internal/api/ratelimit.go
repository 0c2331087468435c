package api

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterPool manages per-endpoint rate limiters
type RateLimiterPool struct {
	limiters     map[string]*rate.Limiter
	rates        map[string]int // Track original rates for consistency check
	burstPercent int
	mu           sync.RWMutex
}

// NewRateLimiterPool creates a new rate limiter pool.
// burstPercent is the share of the per-minute budget allowed in one burst.
func NewRateLimiterPool(burstPercent int) *RateLimiterPool {
	if burstPercent <= 0 {
		burstPercent = 15
	}
	return &RateLimiterPool{
		limiters:     make(map[string]*rate.Limiter),
		rates:        make(map[string]int),
		burstPercent: burstPercent,
	}
}

// GetOrCreate returns an existing rate limiter or creates a new one
// If a limiter exists with a different rate, it logs a warning and keeps the existing one
func (p *RateLimiterPool) GetOrCreate(endpoint string, requestsPerMinute int) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[endpoint]
	existingRate := p.rates[endpoint]
	p.mu.RUnlock()
	if exists {
		if existingRate != requestsPerMinute {
			slog.Warn("Rate limiter already exists with different rate, using existing rate",
				"endpoint", endpoint,
				"existing_rpm", existingRate,
				"requested_rpm", requestsPerMinute)
		}
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-check under the write lock
	if limiter, exists := p.limiters[endpoint]; exists {
		return limiter
	}

	// Create new limiter: convert requests per minute to requests per second
	rps := float64(requestsPerMinute) / 60.0
	burst := max(1, requestsPerMinute*p.burstPercent/100)
	limiter = rate.NewLimiter(rate.Limit(rps), burst)
	p.limiters[endpoint] = limiter
	p.rates[endpoint] = requestsPerMinute

	slog.Debug("Created rate limiter",
		"endpoint", endpoint,
		"rpm", requestsPerMinute,
		"rps", rps,
		"burst", burst)

	return limiter
}

// Wait blocks until the rate limiter allows the next request
func (p *RateLimiterPool) Wait(ctx context.Context, endpoint string, requestsPerMinute int) error {
	limiter := p.GetOrCreate(endpoint, requestsPerMinute)
	return limiter.Wait(ctx)
}
