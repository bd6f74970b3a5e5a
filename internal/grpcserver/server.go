// Package grpcserver is the gRPC transport of the party planner API. It
// serves the same operations as the HTTP router over a hand-declared
// service description and a JSON codec, plus the standard health service.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/partyplanner/internal/grpcserver/interceptor"
)

type tokenVerifier interface {
	Verify(tokenString string) (int64, error)
}

// NewServer builds the gRPC server with logging and bearer-token
// interceptors and registers the party planner and health services.
func NewServer(handler *PartyHandler, auth tokenVerifier) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(auth)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(),
			authInterceptor.UnaryAuthInterceptor([]string{
				MethodListParties,
				MethodGetParty,
				MethodCreateParty,
				MethodReplaceSelections,
				MethodClaim,
				MethodResetSelections,
				MethodDeleteParty,
				MethodExportSelections,
			}),
		),
	)
	RegisterPartyPlannerServer(server, handler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}

// NewGRPCServer listens on addr and returns the server ready to Serve it.
func NewGRPCServer(
	addr string,
	handler *PartyHandler,
	auth tokenVerifier,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return NewServer(handler, auth), lis, nil
}
