package token

import "errors"

// Validation failures. The first three mean the credential is definitely bad;
// ErrVerificationUnavailable means it could not be checked right now. Both
// classes collapse to "re-authenticate" at the HTTP boundary, but callers and
// operators need to tell them apart, and an unreachable authority must never
// be treated as a pass.
var (
	ErrInvalidFormat           = errors.New("token: invalid format")
	ErrInvalidPayload          = errors.New("token: invalid payload")
	ErrExpired                 = errors.New("token: expired")
	ErrVerificationUnavailable = errors.New("token: verification unavailable")
)

// FailureKind returns a stable label for a validation error, for metrics and
// audit events. Unknown errors report as "internal".
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrVerificationUnavailable):
		return "verification_unavailable"
	default:
		return "internal"
	}
}
