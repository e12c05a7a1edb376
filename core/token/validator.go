package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyMode selects how far validation goes.
type VerifyMode int

const (
	// VerifyAuthoritative performs the full pipeline including the identity
	// service round trip. This is the default for every protected route.
	VerifyAuthoritative VerifyMode = iota

	// VerifyLocalOnly stops after the structural, payload and expiry checks.
	// It trusts the payload without confirming the authority issued it, so
	// it must only be used on routes that explicitly accept that tradeoff.
	VerifyLocalOnly
)

// VerifiedIdentity is the authority's answer for a confirmed credential.
type VerifiedIdentity struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  string   `json:"role"`
	Tiers []string `json:"tiers,omitempty"`
}

// Verifier confirms signature and revocation status with the identity
// authority. Implementations must honour the context deadline.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*VerifiedIdentity, error)
}

// Validator turns a candidate token string into Claims or a typed failure.
type Validator struct {
	verifier Verifier
	now      func() time.Time
}

// NewValidator builds a Validator around an identity verifier.
func NewValidator(verifier Verifier) *Validator {
	return &Validator{verifier: verifier, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	if now != nil {
		v.now = now
	}
	return v
}

// Validate runs the validation pipeline. Each step short-circuits:
// structure, payload decode, expiry, then (unless mode is VerifyLocalOnly)
// authoritative verification. On success the authority's role and tiers
// overwrite whatever the payload claimed.
func (v *Validator) Validate(ctx context.Context, raw string, mode VerifyMode) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if err := checkStructure(raw); err != nil {
		return nil, err
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := checkMandatory(claims); err != nil {
		return nil, err
	}

	exp := claims.ExpiresAtTime()
	if exp.IsZero() {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidPayload)
	}
	if iat := claims.IssuedAtTime(); !iat.IsZero() && !exp.After(iat) {
		return nil, fmt.Errorf("%w: expiry not after issue time", ErrInvalidPayload)
	}
	if !exp.After(v.now()) {
		return nil, ErrExpired
	}

	if mode == VerifyLocalOnly {
		return claims, nil
	}
	if v.verifier == nil {
		return nil, fmt.Errorf("%w: no verifier configured", ErrVerificationUnavailable)
	}

	identity, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	applyIdentity(claims, identity)
	return claims, nil
}

func checkStructure(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidFormat)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidFormat, len(parts))
	}
	for _, part := range parts {
		if part == "" {
			return fmt.Errorf("%w: empty segment", ErrInvalidFormat)
		}
	}
	return nil
}

func checkMandatory(claims *Claims) error {
	if claims.UserID() == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidPayload)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidPayload)
	}
	if strings.TrimSpace(claims.Role) == "" {
		return fmt.Errorf("%w: missing role", ErrInvalidPayload)
	}
	return nil
}

// applyIdentity overlays authoritative fields onto the decoded payload. The
// authority wins on every field it reports.
func applyIdentity(claims *Claims, identity *VerifiedIdentity) {
	if identity == nil {
		return
	}
	if id := strings.TrimSpace(identity.ID); id != "" {
		claims.Subject = id
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		claims.Email = email
	}
	if role := strings.TrimSpace(identity.Role); role != "" {
		claims.Role = role
	}
	if len(identity.Tiers) > 0 {
		claims.Tiers = identity.Tiers
	}
}
