// Package ratelimit throttles expensive endpoints per client.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

var _ RateLimiter = (*SlidingWindowLimiter)(nil)

// SlidingWindowLimiter implements sliding window rate limiting
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

type window struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	// drop requests outside the window, in place
	valid := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	w.requests = valid

	if len(w.requests) >= l.limit {
		return false, nil
	}

	w.requests = append(w.requests, now)
	return true, nil
}

// Reset resets the rate limit for a key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// Prune removes windows with no requests inside the current window.
// Returns the number of keys removed.
func (l *SlidingWindowLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.windowSize)
	removed := 0
	for key, w := range l.windows {
		w.mu.Lock()
		stale := len(w.requests) == 0 || !w.requests[len(w.requests)-1].After(cutoff)
		w.mu.Unlock()
		if stale {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// IPRateLimiter wraps a rate limiter for IP-based limiting
type IPRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewIPRateLimiter creates a new IP-based rate limiter.
// Returns nil when requestsPerMinute is not positive, which disables limiting.
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed. A nil limiter allows everything.
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	if l == nil {
		return true, nil
	}
	return l.limiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}

// Prune drops idle client windows. Safe on a nil limiter.
func (l *IPRateLimiter) Prune() int {
	if l == nil {
		return 0
	}
	return l.limiter.Prune()
}

// RunJanitor prunes idle windows every interval until ctx is done
func (l *IPRateLimiter) RunJanitor(ctx context.Context, interval time.Duration) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
