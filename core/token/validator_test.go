package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, mutate func(*Claims)) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
		Email:    "creator@fanforge.test",
		Role:     "creator",
		Platform: "fanforge",
	}
	if mutate != nil {
		mutate(claims)
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return raw
}

func testValidator(verifier Verifier) *Validator {
	return NewValidator(verifier).WithClock(func() time.Time { return testNow })
}

type staticVerifier struct {
	identity *VerifiedIdentity
	err      error
	calls    int
}

func (s *staticVerifier) Verify(context.Context, string) (*VerifiedIdentity, error) {
	s.calls++
	return s.identity, s.err
}

func TestValidateMalformed(t *testing.T) {
	v := testValidator(nil)
	for _, raw := range []string{"", "abc", "a.b", "a.b.c.d", "..", "a..c"} {
		if _, err := v.Validate(context.Background(), raw, VerifyLocalOnly); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("token %q: expected ErrInvalidFormat, got %v", raw, err)
		}
	}
}

func TestValidateMissingMandatoryFields(t *testing.T) {
	v := testValidator(nil)
	cases := map[string]func(*Claims){
		"subject": func(c *Claims) { c.Subject = "" },
		"email":   func(c *Claims) { c.Email = "" },
		"role":    func(c *Claims) { c.Role = "" },
		"expiry":  func(c *Claims) { c.ExpiresAt = nil },
	}
	for name, mutate := range cases {
		raw := mintToken(t, mutate)
		if _, err := v.Validate(context.Background(), raw, VerifyLocalOnly); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("missing %s: expected ErrInvalidPayload, got %v", name, err)
		}
	}
}

func TestValidateExpiryNotAfterIssue(t *testing.T) {
	v := testValidator(nil)
	raw := mintToken(t, func(c *Claims) {
		c.IssuedAt = jwt.NewNumericDate(testNow.Add(time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(testNow.Add(time.Hour))
	})
	if _, err := v.Validate(context.Background(), raw, VerifyLocalOnly); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	v := testValidator(&staticVerifier{identity: &VerifiedIdentity{ID: "u-42"}})
	// One second past expiry is expired, no matter the role or mode.
	raw := mintToken(t, func(c *Claims) {
		c.Role = "god_mode"
		c.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Second))
	})
	for _, mode := range []VerifyMode{VerifyLocalOnly, VerifyAuthoritative} {
		if _, err := v.Validate(context.Background(), raw, mode); !errors.Is(err, ErrExpired) {
			t.Fatalf("mode %v: expected ErrExpired, got %v", mode, err)
		}
	}
}

func TestValidateLocalOnlySkipsVerifier(t *testing.T) {
	verifier := &staticVerifier{identity: &VerifiedIdentity{ID: "other"}}
	v := testValidator(verifier)
	claims, err := v.Validate(context.Background(), mintToken(t, nil), VerifyLocalOnly)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("local-only mode must not call the verifier")
	}
	if claims.UserID() != "u-42" || claims.Role != "creator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateAuthoritativeOverlaysIdentity(t *testing.T) {
	verifier := &staticVerifier{identity: &VerifiedIdentity{
		ID:    "u-42",
		Role:  "admin_agent",
		Tiers: []string{"creator_standard"},
	}}
	v := testValidator(verifier)
	claims, err := v.Validate(context.Background(), mintToken(t, nil), VerifyAuthoritative)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Role != "admin_agent" {
		t.Fatalf("authority role must win, got %q", claims.Role)
	}
	if len(claims.Tiers) != 1 || claims.Tiers[0] != "creator_standard" {
		t.Fatalf("authority tiers must be applied, got %v", claims.Tiers)
	}
}

func TestValidateAuthoritativeFailsClosed(t *testing.T) {
	v := testValidator(&staticVerifier{err: errors.New("connection refused")})
	if _, err := v.Validate(context.Background(), mintToken(t, nil), VerifyAuthoritative); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected ErrVerificationUnavailable, got %v", err)
	}

	noVerifier := testValidator(nil)
	if _, err := noVerifier.Validate(context.Background(), mintToken(t, nil), VerifyAuthoritative); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("missing verifier must fail closed, got %v", err)
	}
}

func TestFailureKind(t *testing.T) {
	cases := map[error]string{
		ErrInvalidFormat:           "invalid_format",
		ErrInvalidPayload:          "invalid_payload",
		ErrExpired:                 "expired",
		ErrVerificationUnavailable: "verification_unavailable",
		errors.New("boom"):         "internal",
	}
	for err, expect := range cases {
		if got := FailureKind(err); got != expect {
			t.Fatalf("kind for %v: expected %q got %q", err, expect, got)
		}
	}
}

func TestIdentityClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/verify" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"u-42","email":"creator@fanforge.test","role":"creator","tiers":["creator_standard"]}}`))
	}))
	defer srv.Close()

	client, err := NewIdentityClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	identity, err := client.Verify(context.Background(), "a.b.c")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.ID != "u-42" || identity.Role != "creator" || len(identity.Tiers) != 1 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestIdentityClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewIdentityClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Verify(context.Background(), "a.b.c"); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected ErrVerificationUnavailable, got %v", err)
	}
}

func TestIdentityClientTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewIdentityClient(srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Verify(context.Background(), "a.b.c"); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected ErrVerificationUnavailable on timeout, got %v", err)
	}
}

func TestIdentityClientMissingUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewIdentityClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Verify(context.Background(), "a.b.c"); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected ErrVerificationUnavailable, got %v", err)
	}
}
