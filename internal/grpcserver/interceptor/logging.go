package interceptor

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/partyplanner/internal/logger"
)

var requestIDKey = strings.ToLower(logger.RequestIDHeader)

// UnaryLoggingInterceptor gives every call a request ID (taken from the
// "x-request-id" metadata or generated), sends it back in the response header
// and logs the method, peer, code and duration. Internal and unknown failures
// are logged at error level.
func UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(requestIDKey); len(values) > 0 {
				requestID = values[0]
			}
		}
		ctx = logger.WithRequestID(ctx, requestID)
		scoped := logger.FromContext(ctx)
		if err := grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, logger.RequestID(ctx))); err != nil {
			scoped.Debugw("request ID header not sent", "error", err)
		}

		resp, err = handler(ctx, req)

		st, _ := status.FromError(err)
		remote := ""
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		fields := []interface{}{
			"method", info.FullMethod,
			"remote", remote,
			"code", st.Code().String(),
			"duration", time.Since(start),
		}
		switch st.Code() {
		case codes.Internal, codes.Unknown:
			scoped.Errorw("gRPC request served", append(fields, "message", st.Message())...)
		default:
			scoped.Infow("gRPC request served", fields...)
		}

		return resp, err
	}
}
