package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMCPMaxBodyBytes int64 = 1 << 20
	clientIdleTTL                = 10 * time.Minute
)

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

type middleware func(http.Handler) http.Handler

// wrapHTTPHandler guards the MCP endpoint. Middlewares run in list order:
// auth first, then the per-client limiter, then the body cap.
func wrapHTTPHandler(base http.Handler, cfg HTTPHandlerConfig) http.Handler {
	chain := []middleware{
		func(h http.Handler) http.Handler { return withBearerAuth(h, cfg.AuthToken) },
		func(h http.Handler) http.Handler { return withRateLimit(h, newHTTPRateLimiter(cfg.RateLimitPerMin)) },
		func(h http.Handler) http.Handler { return withBodyLimit(h, cfg.MaxBodyBytes) },
	}
	h := base
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

func withBearerAuth(next http.Handler, want string) http.Handler {
	expected := []byte(want)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := bearerToken(r)
		switch {
		case got == "":
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		case len(expected) == 0 || subtle.ConstantTimeCompare([]byte(got), expected) != 1:
			writeJSONError(w, http.StatusForbidden, "invalid bearer token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// bearerToken returns "" when the header is absent or not a bearer credential.
func bearerToken(r *http.Request) string {
	scheme, cred, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(cred)
}

func withBodyLimit(next http.Handler, limit int64) http.Handler {
	if limit <= 0 {
		limit = defaultMCPMaxBodyBytes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func withRateLimit(next http.Handler, limiter *httpRateLimiter) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow(clientKey(r)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

// clientKey identifies a caller by token and remote host so one token
// shared by several hosts does not pool their budgets.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		addr = "unknown"
	}
	if tok := bearerToken(r); tok != "" {
		return tok + "|" + addr
	}
	return addr
}

type httpRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*client
	now       func() time.Time
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newHTTPRateLimiter allows perMin requests per minute per client, with a
// burst of the full minute's budget.
func newHTTPRateLimiter(perMin int) *httpRateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &httpRateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMin)),
		burst:   perMin,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (l *httpRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "default"
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= clientIdleTTL {
		l.lastSweep = now
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= clientIdleTTL {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
