// mock-identity is a stand-in identity-verification service for local
// development. It confirms any structurally valid token and echoes the
// payload identity back, which is exactly what the real service does minus
// signature and revocation checks. Never deploy it.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fanforge/accessgate/core/infra/logging"
	"github.com/fanforge/accessgate/core/token"
)

func main() {
	addr := flag.String("addr", ":4000", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/verify", handleVerify)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	logging.Info("mock-identity", "listening", "addr", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}

	claims := &token.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(req.Token, claims); err != nil {
		logging.Info("mock-identity", "rejecting token", "error", err)
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}
	if claims.UserID() == "" {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user": token.VerifiedIdentity{
			ID:    claims.UserID(),
			Email: claims.Email,
			Role:  claims.Role,
			Tiers: claims.Tiers,
		},
	})
}
