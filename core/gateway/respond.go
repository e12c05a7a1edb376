package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/fanforge/accessgate/core/access"
)

// Identity headers the gateway injects for the backend on allowed requests.
// Inbound copies are stripped from every request so clients cannot spoof them.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerUserRole  = "X-User-Role"
	headerUserTiers = "X-User-Tiers"
)

var identityHeaders = []string{headerUserID, headerUserEmail, headerUserRole, headerUserTiers}

func stripIdentityHeaders(r *http.Request) {
	for _, h := range identityHeaders {
		r.Header.Del(h)
	}
}

func setIdentityHeaders(r *http.Request, acc *access.Access) {
	if acc == nil || acc.Claims == nil {
		return
	}
	r.Header.Set(headerUserID, acc.Claims.UserID())
	r.Header.Set(headerUserEmail, acc.Claims.Email)
	r.Header.Set(headerUserRole, acc.Role.String())
	if tiers := acc.Tiers(); len(tiers) > 0 {
		r.Header.Set(headerUserTiers, strings.Join(tiers, ","))
	}
}

// setHardeningHeaders marks authenticated responses as private. Protected
// content must never land in shared caches or search indexes.
func setHardeningHeaders(h http.Header) {
	h.Set("X-Robots-Tag", "noindex, nofollow, noarchive, nosnippet")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
}

type errorBody struct {
	Error string `json:"error"`
	// Code is the stable machine-readable reason; Error carries only the
	// status class so sub-reasons of 401 stay indistinguishable to clients
	// beyond what they can act on.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// wantsHTML sniffs whether the caller is a browser navigation rather than an
// API client. XHR and fetch callers get JSON errors they can handle.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

// respondAuthRequired shapes the no-valid-credential outcome: browsers are
// redirected to the platform login page with the reason in the query string,
// API clients get 401 JSON. All credential failure modes collapse to the
// same caller-visible reason; the precise kind goes to the audit stream only.
func respondAuthRequired(w http.ResponseWriter, r *http.Request, loginPath, code string) {
	setHardeningHeaders(w.Header())
	if wantsHTML(r) && loginPath != "" {
		u := url.URL{Path: loginPath, RawQuery: url.Values{"error": {code}}.Encode()}
		http.Redirect(w, r, u.String(), http.StatusFound)
		return
	}
	writeJSONError(w, http.StatusUnauthorized, code, "Authentication required")
}

func respondForbidden(w http.ResponseWriter, dec access.Decision) {
	setHardeningHeaders(w.Header())
	writeJSONError(w, http.StatusForbidden, dec.Code, dec.Message)
}

func respondRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
}
