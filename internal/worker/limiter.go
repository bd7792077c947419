package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/ppiankov/fieldscout/internal/model"
)

// Limiter rate-limits API clients by key (API key or remote address)
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*client
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a new rate limiter. A non-positive rate disables
// limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		clients:      make(map[string]*client),
		defaultRate:  limit,
		defaultBurst: burst,
		now:          time.Now,
	}
}

// Allow reports whether the client may make a request now
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until the client may proceed or ctx ends
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return eris.Wrapf(model.ErrRateLimited, "client %s: %v", key, err)
	}
	return nil
}

// SetClientRate overrides the rate of one client
func (l *Limiter) SetClientRate(key string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients[key] = &client{
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		lastSeen: l.now(),
	}
}

// Forget drops clients idle for longer than maxIdle and returns how many
// were removed
func (l *Limiter) Forget(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()
	return c.limiter
}
