package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fanforge/accessgate/core/access"
	"github.com/fanforge/accessgate/core/infra/bus"
	"github.com/fanforge/accessgate/core/infra/config"
	"github.com/fanforge/accessgate/core/infra/logging"
	"github.com/fanforge/accessgate/core/infra/metrics"
	"github.com/fanforge/accessgate/core/infra/ratelimit"
	"github.com/fanforge/accessgate/core/infra/redisutil"
	"github.com/fanforge/accessgate/core/token"
)

// Gateway wires the credential extractor, token validator, access resolver
// and route policy in front of the shared backend. All fields are set at
// construction and never mutated, so one instance serves requests from any
// number of goroutines.
type Gateway struct {
	cfg       config.Config
	table     *access.Table
	validator *token.Validator
	resolver  *access.Resolver
	limiter   ratelimit.Limiter
	metrics   metrics.Metrics
	audit     bus.Publisher
	upstream  http.Handler
}

// Options carries the collaborators for New. Optional fields fall back to
// inert defaults so tests can supply only what they exercise.
type Options struct {
	Table     *access.Table
	Validator *token.Validator
	Limiter   ratelimit.Limiter
	Metrics   metrics.Metrics
	Audit     bus.Publisher
	// Upstream overrides the reverse proxy built from cfg.UpstreamURL.
	Upstream http.Handler
}

func New(cfg config.Config, opts Options) (*Gateway, error) {
	if opts.Table == nil {
		return nil, errors.New("gateway: route policy table is required")
	}
	if opts.Validator == nil {
		return nil, errors.New("gateway: token validator is required")
	}
	g := &Gateway{
		cfg:       cfg,
		table:     opts.Table,
		validator: opts.Validator,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		upstream:  opts.Upstream,
	}
	if g.metrics == nil {
		g.metrics = metrics.Noop{}
	}
	if g.audit == nil {
		g.audit = bus.Noop{}
	}
	if g.limiter == nil {
		g.limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{})
	}
	if g.upstream == nil {
		target, err := url.Parse(cfg.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("gateway: parse upstream url: %w", err)
		}
		g.upstream = httputil.NewSingleHostReverseProxy(target)
	}
	g.resolver = access.NewResolver(g.onAnomaly)
	return g, nil
}

func (g *Gateway) onAnomaly(kind, detail string) {
	logging.Error("gateway", "auth anomaly", "kind", kind, "detail", detail)
	g.metrics.IncAnomaly(kind)
	if err := g.audit.Publish(bus.SubjectAnomaly, bus.AnomalyEvent{
		Time:     time.Now().UTC(),
		Kind:     kind,
		Detail:   detail,
		Platform: g.cfg.Platform,
	}); err != nil {
		logging.Error("gateway", "anomaly publish failed", "error", err)
	}
}

// Handler returns the full request chain: CORS, then the auth gate, then the
// upstream proxy. Health stays outside the gate so probes need no credential.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","platform":%q}`, g.cfg.Platform)
	})
	mux.Handle("/", g.Gate(g.upstream))
	return g.corsMiddleware(mux)
}

func (g *Gateway) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && g.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) originAllowed(origin string) bool {
	for _, allowed := range g.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Run assembles the gateway from configuration and serves until SIGINT or
// SIGTERM. The metrics listener runs on its own port so the public surface
// never exposes it.
func Run(cfg config.Config) error {
	table, err := access.LoadTable(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("load route policy: %w", err)
	}
	logging.Info("gateway", "route policy loaded", "entries", table.Len(), "path", cfg.PolicyPath)

	verifier, err := token.NewIdentityClient(cfg.IdentityURL, cfg.VerifyTimeout)
	if err != nil {
		return fmt.Errorf("identity client: %w", err)
	}
	validator := token.NewValidator(verifier)

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		client, err := redisutil.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis limiter: %w", err)
		}
		defer client.Close()
		limiter, err = ratelimit.NewRedisLimiter(client)
		if err != nil {
			return fmt.Errorf("redis limiter: %w", err)
		}
		logging.Info("gateway", "burst limiter ready", "backend", "redis")
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{})
		logging.Info("gateway", "burst limiter ready", "backend", "memory")
	}

	var audit bus.Publisher = bus.Noop{}
	if cfg.NATSURL != "" {
		nb, err := bus.NewNatsBus(cfg.NATSURL)
		if err != nil {
			logging.Error("gateway", "audit bus unavailable, continuing without", "error", err)
		} else {
			defer nb.Close()
			audit = nb
		}
	}

	g, err := New(cfg, Options{
		Table:     table,
		Validator: validator,
		Limiter:   limiter,
		Metrics:   metrics.NewProm("accessgate"),
		Audit:     audit,
	})
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		logging.Info("gateway", "metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("gateway", "metrics server", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info("gateway", "listening", "addr", cfg.HTTPAddr, "platform", cfg.Platform, "upstream", cfg.UpstreamURL)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logging.Info("gateway", "shutting down", "signal", sig)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(ctx)
	return srv.Shutdown(ctx)
}
