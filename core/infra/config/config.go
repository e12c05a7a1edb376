package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr      = ":8088"
	defaultMetricsAddr   = ":9098"
	defaultUpstreamURL   = "http://localhost:3000"
	defaultIdentityURL   = "http://localhost:4000"
	defaultLoginPath     = "/login"
	defaultSessionCookie = "ff_session"
	defaultPolicyPath    = "config/routes.yaml"
	defaultVerifyTimeout = 5 * time.Second

	envHTTPAddr      = "ACCESSGATE_HTTP_ADDR"
	envMetricsAddr   = "ACCESSGATE_METRICS_ADDR"
	envUpstreamURL   = "UPSTREAM_URL"
	envIdentityURL   = "IDENTITY_URL"
	envLoginPath     = "ACCESSGATE_LOGIN_PATH"
	envSessionCookie = "ACCESSGATE_SESSION_COOKIE"
	envPolicyPath    = "ROUTE_POLICY_PATH"
	envVerifyTimeout = "IDENTITY_VERIFY_TIMEOUT_MS"
	envRedisURL      = "REDIS_URL"
	envNATSURL       = "NATS_URL"
	envPlatform      = "PLATFORM_ID"
	envAllowLocal    = "ACCESSGATE_ALLOW_LOCAL_VERIFY"
	envBurstLimit    = "ACCESSGATE_BURST_LIMIT"
	envBurstWindow   = "ACCESSGATE_BURST_WINDOW_MS"
	envOrigins       = "ACCESSGATE_ALLOWED_ORIGINS"
)

// Config holds all runtime settings for the gateway. It is built once in
// main and passed by value into constructors; nothing mutates it afterwards.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// UpstreamURL is the shared platform backend fronted by the gateway.
	UpstreamURL string

	// IdentityURL is the base URL of the identity-verification service.
	IdentityURL   string
	VerifyTimeout time.Duration

	// Platform is the platform identifier this deployment serves
	// (fanforge, privvault or stagepass).
	Platform string

	LoginPath     string
	SessionCookie string
	PolicyPath    string

	// AllowLocalVerify permits policy entries flagged local_ok to skip the
	// authoritative verification call. Off by default.
	AllowLocalVerify bool

	// RedisURL enables the redis-backed burst limiter when set. Empty means
	// the in-memory limiter is used.
	RedisURL string
	// NATSURL enables audit-event publishing when set.
	NATSURL string

	BurstLimit  int
	BurstWindow time.Duration

	// AllowedOrigins is the browser-origin allowlist for CORS. Empty means
	// cross-origin requests are refused.
	AllowedOrigins []string
}

// Load returns configuration using environment variables with sane defaults.
func Load() Config {
	cfg := Config{
		HTTPAddr:         envOr(envHTTPAddr, defaultHTTPAddr),
		MetricsAddr:      envOr(envMetricsAddr, defaultMetricsAddr),
		UpstreamURL:      envOr(envUpstreamURL, defaultUpstreamURL),
		IdentityURL:      envOr(envIdentityURL, defaultIdentityURL),
		VerifyTimeout:    defaultVerifyTimeout,
		Platform:         envOr(envPlatform, "fanforge"),
		LoginPath:        envOr(envLoginPath, defaultLoginPath),
		SessionCookie:    envOr(envSessionCookie, defaultSessionCookie),
		PolicyPath:       envOr(envPolicyPath, defaultPolicyPath),
		AllowLocalVerify: parseBool(os.Getenv(envAllowLocal)),
		RedisURL:         strings.TrimSpace(os.Getenv(envRedisURL)),
		NATSURL:          strings.TrimSpace(os.Getenv(envNATSURL)),
		BurstLimit:       60,
		BurstWindow:      time.Minute,
	}
	if ms := envInt(envVerifyTimeout); ms > 0 {
		cfg.VerifyTimeout = time.Duration(ms) * time.Millisecond
	}
	if n := envInt(envBurstLimit); n > 0 {
		cfg.BurstLimit = n
	}
	if ms := envInt(envBurstWindow); ms > 0 {
		cfg.BurstWindow = time.Duration(ms) * time.Millisecond
	}
	cfg.AllowedOrigins = splitList(os.Getenv(envOrigins))
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	return 0
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
