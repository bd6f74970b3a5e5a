package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "partyplanner.PartyPlanner"

// Full method names, as seen by interceptors.
const (
	MethodSignup            = "/" + ServiceName + "/Signup"
	MethodLogin             = "/" + ServiceName + "/Login"
	MethodPing              = "/" + ServiceName + "/Ping"
	MethodListParties       = "/" + ServiceName + "/ListParties"
	MethodGetParty          = "/" + ServiceName + "/GetParty"
	MethodCreateParty       = "/" + ServiceName + "/CreateParty"
	MethodReplaceSelections = "/" + ServiceName + "/ReplaceSelections"
	MethodClaim             = "/" + ServiceName + "/Claim"
	MethodResetSelections   = "/" + ServiceName + "/ResetSelections"
	MethodDeleteParty       = "/" + ServiceName + "/DeleteParty"
	MethodExportSelections  = "/" + ServiceName + "/ExportSelections"
)

// PartyPlannerServer is the gRPC API of the party planner.
type PartyPlannerServer interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Ping(ctx context.Context, req *Empty) (*models.HealthResponse, error)
	ListParties(ctx context.Context, req *Empty) (*ListPartiesResponse, error)
	GetParty(ctx context.Context, req *PartyRequest) (*party.Party, error)
	CreateParty(ctx context.Context, req *models.CreatePartyRequest) (*party.Party, error)
	ReplaceSelections(ctx context.Context, req *ReplaceSelectionsRequest) (*party.Party, error)
	Claim(ctx context.Context, req *ClaimRequest) (*party.Party, error)
	ResetSelections(ctx context.Context, req *PartyRequest) (*party.Party, error)
	DeleteParty(ctx context.Context, req *PartyRequest) (*models.SuccessResponse, error)
	ExportSelections(ctx context.Context, req *PartyRequest) (*ExportResponse, error)
}

func unary[Req, Resp any](
	name string,
	call func(PartyPlannerServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(srv.(PartyPlannerServer), ctx, req.(*Req))
				if err != nil {
					return nil, err
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, req)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// ServiceDesc describes the service without generated code: the messages
// are plain Go structs carried by the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PartyPlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Signup", PartyPlannerServer.Signup),
		unary("Login", PartyPlannerServer.Login),
		unary("Ping", PartyPlannerServer.Ping),
		unary("ListParties", PartyPlannerServer.ListParties),
		unary("GetParty", PartyPlannerServer.GetParty),
		unary("CreateParty", PartyPlannerServer.CreateParty),
		unary("ReplaceSelections", PartyPlannerServer.ReplaceSelections),
		unary("Claim", PartyPlannerServer.Claim),
		unary("ResetSelections", PartyPlannerServer.ResetSelections),
		unary("DeleteParty", PartyPlannerServer.DeleteParty),
		unary("ExportSelections", PartyPlannerServer.ExportSelections),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "partyplanner",
}

// RegisterPartyPlannerServer registers the implementation on the server.
func RegisterPartyPlannerServer(registrar grpc.ServiceRegistrar, srv PartyPlannerServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}
