package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const verifyPath = "/auth/verify"

// IdentityClient talks to the identity-verification service, the sole source
// of truth for signature and revocation validity. The gateway never holds
// signing keys itself.
type IdentityClient struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
}

// NewIdentityClient builds a client for the identity service. The timeout
// bounds each verification call; the per-request context still cancels it
// earlier when the inbound request is aborted.
func NewIdentityClient(baseURL string, timeout time.Duration) (*IdentityClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity base url is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IdentityClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		timeout: timeout,
	}, nil
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	User *VerifiedIdentity `json:"user"`
}

// Verify posts the token for authoritative confirmation. Transport errors
// and non-2xx answers both report as ErrVerificationUnavailable: the caller
// fails closed either way, and no retry happens here.
func (c *IdentityClient) Verify(ctx context.Context, raw string) (*VerifiedIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(verifyRequest{Token: raw})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrVerificationUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrVerificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: identity service returned %d", ErrVerificationUnavailable, resp.StatusCode)
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrVerificationUnavailable, err)
	}
	if decoded.User == nil || strings.TrimSpace(decoded.User.ID) == "" {
		return nil, fmt.Errorf("%w: response missing user", ErrVerificationUnavailable)
	}
	return decoded.User, nil
}
