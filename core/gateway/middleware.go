package gateway

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fanforge/accessgate/core/access"
	"github.com/fanforge/accessgate/core/infra/bus"
	"github.com/fanforge/accessgate/core/infra/logging"
	"github.com/fanforge/accessgate/core/token"
)

// Gate is the authorization middleware. Requests whose path matches no
// policy entry pass straight through. Matched requests go through the fixed
// pipeline: burst limit, extract, validate, resolve, decide, shape.
func (g *Gateway) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Inbound identity headers are always dropped: only the gate may
		// assert identity to the backend.
		stripIdentityHeaders(r)

		entry, matched := g.table.Match(r.URL.Path)
		if !matched {
			next.ServeHTTP(w, r)
			return
		}

		if !g.allowBurst(r, entry) {
			g.metrics.IncRateLimited(entry.Prefix)
			respondRateLimited(w)
			return
		}

		raw, source := ExtractToken(r, g.cfg.SessionCookie)
		if raw == "" {
			g.deny(w, r, entry, nil, access.Decision{
				Outcome: access.OutcomeAuthRequired,
				Code:    access.ReasonAuthenticationRequired,
			}, "no_credential")
			return
		}

		claims, err := g.validate(r, entry, raw)
		if err != nil {
			kind := token.FailureKind(err)
			logging.Info("gateway", "credential rejected",
				"path", r.URL.Path, "source", source.String(), "kind", kind)
			g.deny(w, r, entry, nil, access.Decision{
				Outcome: access.OutcomeAuthRequired,
				Code:    access.ReasonAuthenticationRequired,
			}, kind)
			return
		}

		acc := g.resolver.Resolve(claims)
		dec := access.Decide(acc, entry)
		if dec.Outcome != access.OutcomeAllow {
			g.deny(w, r, entry, acc, dec, dec.Code)
			return
		}

		g.metrics.IncDecision(dec.Outcome.String(), g.cfg.Platform, entry.Prefix)
		auth := &AuthContext{Claims: claims, Access: acc, DecisionID: uuid.NewString()}
		setIdentityHeaders(r, acc)
		setHardeningHeaders(w.Header())
		next.ServeHTTP(w, r.WithContext(withAuthContext(r.Context(), auth)))
	})
}

// allowBurst applies the fixed-window limiter per client IP and route
// prefix. A broken limiter backend fails open: the credential checks behind
// it still gate the request.
func (g *Gateway) allowBurst(r *http.Request, entry *access.PolicyEntry) bool {
	if g.cfg.BurstLimit <= 0 {
		return true
	}
	key := clientIP(r) + "|" + entry.Prefix
	dec, err := g.limiter.Allow(r.Context(), key, g.cfg.BurstLimit, g.cfg.BurstWindow)
	if err != nil {
		logging.Error("gateway", "burst limiter error", "error", err)
		return true
	}
	return dec.Allowed
}

// validate runs the token pipeline, picking local-only mode when both the
// route and the deployment opt in, and records verification latency.
func (g *Gateway) validate(r *http.Request, entry *access.PolicyEntry, raw string) (*token.Claims, error) {
	mode := token.VerifyAuthoritative
	if entry.LocalOK && g.cfg.AllowLocalVerify {
		mode = token.VerifyLocalOnly
	}
	start := time.Now()
	claims, err := g.validator.Validate(r.Context(), raw, mode)
	result := "ok"
	if err != nil {
		result = token.FailureKind(err)
	}
	g.metrics.ObserveVerify(result, time.Since(start).Seconds())
	return claims, err
}

// deny records and shapes a non-allow decision. The audit event carries the
// precise reason; the HTTP response carries only the collapsed code.
func (g *Gateway) deny(w http.ResponseWriter, r *http.Request, entry *access.PolicyEntry, acc *access.Access, dec access.Decision, reason string) {
	g.metrics.IncDecision(dec.Outcome.String(), g.cfg.Platform, entry.Prefix)

	event := bus.DecisionEvent{
		DecisionID: uuid.NewString(),
		Time:       time.Now().UTC(),
		Platform:   g.cfg.Platform,
		Path:       r.URL.Path,
		Prefix:     entry.Prefix,
		Outcome:    dec.Outcome.String(),
		Reason:     reason,
		SourceIP:   clientIP(r),
	}
	if acc != nil && acc.Claims != nil {
		event.Subject = acc.Claims.UserID()
		event.Role = acc.Role.String()
	}
	if err := g.audit.Publish(bus.SubjectDecision, event); err != nil {
		logging.Error("gateway", "decision publish failed", "error", err)
	}

	switch dec.Outcome {
	case access.OutcomeAuthRequired:
		respondAuthRequired(w, r, g.cfg.LoginPath, dec.Code)
	default:
		respondForbidden(w, dec)
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
