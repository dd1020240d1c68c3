package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for the client_id cookie.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the client_id cookie Secure. Dev mode turns it off unless set explicitly.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"true"`

	// AllowedOrigins lists origins that may open the /auth/events WebSocket. Empty allows same-origin only.
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`

	// AuthRateLimit is the sustained requests per second per client IP on sign-in and reset endpoints.
	AuthRateLimit float64 `env:"HTTP_AUTH_RATE_LIMIT" envDefault:"1"`
	// AuthRateBurst is the burst allowance per client IP.
	AuthRateBurst int `env:"HTTP_AUTH_RATE_BURST" envDefault:"5"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honored.
	// Empty keys every request by its peer address.
	TrustedProxies []string `env:"HTTP_TRUSTED_PROXIES" envSeparator:","`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"15s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.AuthRateLimit <= 0 {
		h.AuthRateLimit = 1
	}
	if h.AuthRateBurst < 1 {
		h.AuthRateBurst = 1
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
}
