package httpx

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/gradebook/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow tokens refill evenly
// over Window and at most Burst can be spent at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	if c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Route profiles. Each can be tuned with RATELIMIT_<NAME>_REQUESTS,
// RATELIMIT_<NAME>_WINDOW_SEC and RATELIMIT_<NAME>_BURST, read once at
// startup.
var (
	// StrictLimit guards credential checks: login, registration and TOTP codes.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers writes and admin reads.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers grade and student listings and health probes.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers the unauthenticated index.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overrides fields of def from RATELIMIT_<prefix>_*.
// Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	name := "RATELIMIT_" + prefix + "_"

	cfg := def
	if n, ok := positiveEnvInt(name + "REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt(name + "WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt(name + "BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// idleSweepEvery is how many new keys are admitted between sweeps of idle
// buckets.
const idleSweepEvery = 256

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// bucketSet holds one token bucket per key. Buckets idle long enough to
// have refilled completely are dropped, since a fresh one is identical.
type bucketSet struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
	added   int
	now     func() time.Time
}

func newBucketSet(cfg RateLimitConfig) *bucketSet {
	return &bucketSet{cfg: cfg, buckets: make(map[string]*bucket), now: time.Now}
}

func (s *bucketSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if b, ok := s.buckets[key]; ok {
		b.lastSeen = now
		return b.lim
	}

	s.added++
	if s.added%idleSweepEvery == 0 {
		s.sweep(now)
	}

	b := &bucket{lim: rate.NewLimiter(s.cfg.limit(), s.cfg.Burst), lastSeen: now}
	s.buckets[key] = b
	return b.lim
}

func (s *bucketSet) sweep(now time.Time) {
	idle := s.cfg.Window
	if idle <= 0 {
		idle = time.Minute
	}
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(s.buckets, key)
		}
	}
}

// RateLimitMiddleware rejects requests with 429 once the bucket for their
// key is empty. Requests whose key cannot be determined pass through.
func RateLimitMiddleware(cfg RateLimitConfig, keyOf KeyExtractor) Middleware {
	set := newBucketSet(cfg)
	limitHeader := strconv.Itoa(cfg.RequestsPerWindow)
	windowHeader := cfg.Window.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit key missing, request allowed", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			lim := set.get(key)
			if lim.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := lim.Reserve()
			wait := res.Delay()
			res.Cancel()
			retryAfter := max(int((wait+time.Second-1)/time.Second), 1)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key, "path", r.URL.Path, "retry_after", retryAfter)

			h := w.Header()
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			h.Set("X-RateLimit-Limit", limitHeader)
			h.Set("X-RateLimit-Window", windowHeader)
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Demasiadas solicitudes, intente más tarde")
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits per authenticated account and address. It must run
// after the gate so the account id is in the context; without one it
// degrades to per-address limiting.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByJSONField limits per body field regardless of address, e.g.
// login attempts per email. Requests without the field pass.
func RateLimitByJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, JSONFieldKeyExtractor(field))
}
