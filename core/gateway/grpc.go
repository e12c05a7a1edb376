package gateway

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/google/uuid"

	"github.com/fanforge/accessgate/core/token"
)

// AuthUnaryInterceptor authenticates gRPC calls from the authorization
// metadata entry, mirroring the HTTP bearer channel. Methods listed in
// skipMethods (full method names) bypass the check. The resolved
// AuthContext rides on the handler context.
func (g *Gateway) AuthUnaryInterceptor(skipMethods ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(skipMethods))
	for _, m := range skipMethods {
		skip[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := skip[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		raw := bearerFromMetadata(ctx)
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		claims, err := g.validator.Validate(ctx, raw, token.VerifyAuthoritative)
		if err != nil {
			if errors.Is(err, token.ErrVerificationUnavailable) {
				return nil, status.Error(codes.Unavailable, "credential verification unavailable")
			}
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		acc := g.resolver.Resolve(claims)
		if !acc.PlatformAllowed(g.cfg.Platform) {
			return nil, status.Error(codes.PermissionDenied, "credential is not valid for this platform")
		}
		auth := &AuthContext{Claims: claims, Access: acc, DecisionID: uuid.NewString()}
		return handler(withAuthContext(ctx, auth), req)
	}
}

func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		const prefix = "bearer "
		if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
			return strings.TrimSpace(v[len(prefix):])
		}
	}
	return ""
}
