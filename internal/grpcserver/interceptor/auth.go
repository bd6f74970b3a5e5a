package interceptor

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
)

type tokenVerifier interface {
	Verify(tokenString string) (int64, error)
}

type AuthInterceptor struct {
	auth tokenVerifier
}

func NewAuthInterceptor(auth tokenVerifier) *AuthInterceptor {
	return &AuthInterceptor{auth: auth}
}

// bearerToken accepts both "Bearer <token>" and a bare token.
func bearerToken(md metadata.MD) string {
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}

	value := strings.TrimSpace(values[0])
	parts := strings.SplitN(value, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return value
}

// UnaryAuthInterceptor rejects calls to the protected methods without a valid
// token in the "authorization" metadata and otherwise attaches the user ID to
// the context under auth.UserIDKey.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		userID, err := a.auth.Verify(bearerToken(md))
		if err != nil {
			logger.FromContext(ctx).Debugln("Error calling the `a.auth.Verify()`: ", zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "Authentication required")
		}

		ctxWithUser := context.WithValue(ctx, auth.UserIDKey, userID)
		return handler(ctxWithUser, req)
	}
}
