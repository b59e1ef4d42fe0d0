package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig holds configuration for rate limiting.
type RateLimiterConfig struct {
	// Per-IP limits for all requests.
	RequestsPerSecond float64
	Burst             int
	// Stricter per-IP limits for complaint filing.
	FilingsPerSecond float64
	FilingBurst      int
	// CleanupInterval is how often stale buckets are purged.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             40,
		FilingsPerSecond:  0.1,
		FilingBurst:       5,
		CleanupInterval:   5 * time.Minute,
	}
}

// tokenBucket implements a simple token bucket rate limiter.
type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(maxTokens, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now,
	}
}

func (b *tokenBucket) allow(now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.maxTokens {
			b.tokens = b.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *tokenBucket) stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(b.lastRefill) > ttl
}

// RateLimiter provides per-IP rate limiting with a general and a filing
// bucket per client.
type RateLimiter struct {
	config RateLimiterConfig

	general sync.Map // map[string]*tokenBucket (keyed by IP)
	filing  sync.Map // map[string]*tokenBucket (keyed by IP)

	mu     sync.Mutex
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a new RateLimiter and starts a background cleanup
// goroutine. Call Stop() to release resources.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// SetClock overrides the time source (for testing).
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

// Stop halts the background cleanup goroutine. It is safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanup() {
	interval := rl.config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.purge(10 * time.Minute)
		}
	}
}

func (rl *RateLimiter) purge(ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for _, m := range []*sync.Map{&rl.general, &rl.filing} {
		m.Range(func(key, value any) bool {
			if b, ok := value.(*tokenBucket); ok && b.stale(now, ttl) {
				m.Delete(key)
			}
			return true
		})
	}
}

func (rl *RateLimiter) take(m *sync.Map, ip string, perSecond float64, burst int) bool {
	if perSecond <= 0 {
		return true
	}
	if burst < 1 {
		burst = 1
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	val, _ := m.LoadOrStore(ip, newTokenBucket(float64(burst), perSecond, now))
	return val.(*tokenBucket).allow(now)
}

// AllowIP checks whether a request from ip is allowed under the general
// limit. A non-positive rate disables the limit.
func (rl *RateLimiter) AllowIP(ip string) bool {
	return rl.take(&rl.general, ip, rl.config.RequestsPerSecond, rl.config.Burst)
}

// AllowFiling checks whether ip may file another complaint.
func (rl *RateLimiter) AllowFiling(ip string) bool {
	return rl.take(&rl.filing, ip, rl.config.FilingsPerSecond, rl.config.FilingBurst)
}

// IPRateLimitMiddleware enforces the general per-IP limit on all requests.
func IPRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return limitWith(rl.AllowIP)
}

// FilingRateLimitMiddleware enforces the stricter per-IP limit on complaint
// filing.
func FilingRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return limitWith(rl.AllowFiling)
}

func limitWith(allow func(ip string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(extractIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, kindRateLimited, "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP returns the client IP from the request, preferring the leftmost
// X-Forwarded-For entry. Deployments must sit behind a proxy that sets it.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
