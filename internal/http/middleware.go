package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/service"
)

// ClientIDCookie binds a browser to its auth runtime.
const ClientIDCookie = "client_id"

// clientCookieMaxAge outlives the longest provider session.
const clientCookieMaxAge = 400 * 24 * time.Hour

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *respWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the WebSocket upgrader take over the connection.
func (w *respWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RuntimeSource hands out the auth runtime of a client id. *service.RuntimeRegistry implements it.
type RuntimeSource interface {
	Get(clientID string) *service.Runtime
}

// CookieConfig controls the attributes of cookies the server sets.
type CookieConfig struct {
	Domain string
	Secure bool
}

// ClientRuntime returns a middleware that resolves the client_id cookie, issuing a
// fresh id when it is missing or malformed, and attaches the client's runtime.
func ClientRuntime(src RuntimeSource, cookie CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if c, err := r.Cookie(ClientIDCookie); err == nil {
				if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
					clientID = id.String()
				}
			}
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientIDCookie,
					Value:    clientID,
					Path:     "/",
					Domain:   cookie.Domain,
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(clientCookieMaxAge.Seconds()),
				})
			}
			rt := src.Get(clientID)
			next.ServeHTTP(w, r.WithContext(SetRuntimeInContext(r.Context(), rt)))
		})
	}
}

// bootstrapTimeout bounds the first session resolution of a runtime.
const bootstrapTimeout = 15 * time.Second

// resolveState bootstraps rt once and returns its current state. The bootstrap
// is detached from the request so a dropped connection cannot decide the outcome.
func resolveState(r *http.Request, rt *service.Runtime) domainauth.State {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), bootstrapTimeout)
	defer cancel()
	rt.Bootstrap(ctx)
	s, _ := rt.State.Current()
	return s
}

var errAuthenticationRequired = errors.New("authentication required")

// RequireAuth returns a middleware that admits only Authenticated clients and
// attaches their profile. Others get 401 with the sign-in path to redirect to.
func RequireAuth(signInPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rt, ok := RuntimeFromContext(r.Context())
			if !ok {
				WriteAppError(w, apperrors.Internal("client runtime missing"))
				return
			}
			s := resolveState(r, rt)
			if !s.IsAuthenticated() {
				WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":       "authentication_required",
					"message":     errAuthenticationRequired.Error(),
					"redirect_to": signInPath,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetProfileInContext(r.Context(), s.Profile)))
		})
	}
}

// RequireRole returns a middleware that admits only profiles holding one of roles.
// It must run inside RequireAuth.
func RequireRole(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := ProfileFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errAuthenticationRequired,
				})
				return
			}
			if !slices.Contains(roles, p.Role) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ipLimiter holds a rate limiter and the last time it was seen.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides per-IP token buckets for credential endpoints.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	proxies  TrustedProxies
}

// NewRateLimiter creates a per-IP rate limiter. Call Sweep periodically to drop idle IPs.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     r,
		burst:    burst,
		idle:     5 * time.Minute,
		now:      time.Now,
	}
}

// TrustProxies makes the limiter key requests relayed by these proxies by the
// forwarded client address instead of the proxy's.
func (rl *RateLimiter) TrustProxies(proxies TrustedProxies) *RateLimiter {
	rl.proxies = proxies
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, exists := rl.limiters[ip]; exists {
		l.lastSeen = rl.now()
		return l.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: rl.now()}
	return limiter
}

// Sweep removes IPs not seen for the idle window.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.limiters {
		if rl.now().Sub(l.lastSeen) > rl.idle {
			delete(rl.limiters, ip)
		}
	}
}

// Run sweeps every interval until ctx ends.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Middleware returns a middleware that enforces the rate limit.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.getLimiter(clientIP(r, rl.proxies)).Allow() {
				retryAfter := max(int(1.0/float64(rl.rate)), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteAppError(w, apperrors.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
