package grpcserver

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/metrics"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
	"github.com/patric-chuzhbe/partyplanner/internal/view"
)

type partyService interface {
	ListParties(ctx context.Context, userID int64) ([]party.Party, error)

	GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error)

	CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error)

	ReplaceSelections(
		ctx context.Context,
		userID int64,
		partyID string,
		selections party.Selections,
	) (*party.Party, error)

	Claim(
		ctx context.Context,
		userID int64,
		partyID string,
		date string,
		item string,
		claimant string,
	) (*party.Party, error)

	ResetSelections(ctx context.Context, userID int64, partyID string) (*party.Party, error)

	DeleteParty(ctx context.Context, userID int64, partyID string) error

	Ping(ctx context.Context) error
}

type accountKeeper interface {
	Register(ctx context.Context, username, password string) (*auth.Session, error)

	Authenticate(ctx context.Context, username, password string) (*auth.Session, error)
}

type claimRecorder interface {
	RecordClaim(outcome string)
}

// PartyHandler serves the gRPC API on top of the same service and
// account logic as the HTTP router.
type PartyHandler struct {
	svc      partyService
	accounts accountKeeper
	validate *validator.Validate
	claims   claimRecorder
}

// HandlerOption configures optional parts of the handler.
type HandlerOption func(*PartyHandler)

// WithClaimRecorder counts claim outcomes, e.g. with *metrics.Metrics.
func WithClaimRecorder(recorder claimRecorder) HandlerOption {
	return func(h *PartyHandler) {
		h.claims = recorder
	}
}

func NewPartyHandler(svc partyService, accounts accountKeeper, opts ...HandlerOption) *PartyHandler {
	h := &PartyHandler{
		svc:      svc,
		accounts: accounts,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// statusFromError maps domain errors to gRPC codes the way the router maps
// them to HTTP statuses.
func statusFromError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, "Username and password required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "Invalid username or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "Authentication required")
	case errors.Is(err, models.ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, "Username already exists")
	case errors.Is(err, models.ErrPartyAlreadyExists):
		return status.Error(codes.AlreadyExists, "Party ID already exists")
	case errors.Is(err, models.ErrSelectionAlreadyClaimed):
		return status.Error(codes.AlreadyExists, "This item has already been selected for this date")
	case errors.Is(err, models.ErrPartyNotFound):
		return status.Error(codes.NotFound, "Party not found")
	case errors.Is(err, models.ErrStorageBusy):
		return status.Error(codes.Unavailable, "Server is busy, please try again")
	default:
		logger.FromContext(ctx).Errorw("gRPC call failed", zap.Error(err))
		return status.Error(codes.Internal, "Internal server error")
	}
}

func (h *PartyHandler) check(req any) error {
	if err := h.validate.Struct(req); err != nil {
		return status.Error(codes.InvalidArgument, "Missing required fields")
	}

	return nil
}

func userID(ctx context.Context) (int64, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "Authentication required")
	}

	return id, nil
}

func newAuthResponse(session *auth.Session) *models.AuthResponse {
	return &models.AuthResponse{
		Success: true,
		User: models.UserInfo{
			ID:       session.User.ID,
			Username: session.User.Username,
		},
		Token: session.Token,
	}
}

func (h *PartyHandler) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if err := h.check(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "Username and password required")
	}

	session, err := h.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return newAuthResponse(session), nil
}

func (h *PartyHandler) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := h.check(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "Username and password required")
	}

	session, err := h.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return newAuthResponse(session), nil
}

// Ping mirrors the HTTP health check: it always succeeds and reports the storage state.
func (h *PartyHandler) Ping(ctx context.Context, _ *Empty) (*models.HealthResponse, error) {
	dbConnected := true
	if err := h.svc.Ping(ctx); err != nil {
		logger.FromContext(ctx).Infoln("Error calling the `h.svc.Ping()`: ", zap.Error(err))
		dbConnected = false
	}

	return &models.HealthResponse{Status: "ok", DBConnected: dbConnected}, nil
}

func (h *PartyHandler) ListParties(ctx context.Context, _ *Empty) (*ListPartiesResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	parties, err := h.svc.ListParties(ctx, uid)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	result := make(models.PartiesResponse, len(parties))
	for _, p := range parties {
		result[p.ID] = p
	}

	return &ListPartiesResponse{Parties: result}, nil
}

func (h *PartyHandler) GetParty(ctx context.Context, req *PartyRequest) (*party.Party, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	found, err := h.svc.GetParty(ctx, uid, req.PartyID)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return found, nil
}

func (h *PartyHandler) CreateParty(ctx context.Context, req *models.CreatePartyRequest) (*party.Party, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateParty(ctx, uid, party.Party{
		ID:        req.PartyID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		MenuItems: req.MenuItems,
	})
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return created, nil
}

// ReplaceSelections overwrites the whole document, like PUT /parties/{id}.
func (h *PartyHandler) ReplaceSelections(ctx context.Context, req *ReplaceSelectionsRequest) (*party.Party, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	updated, err := h.svc.ReplaceSelections(ctx, uid, req.PartyID, req.Selections)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return updated, nil
}

func (h *PartyHandler) Claim(ctx context.Context, req *ClaimRequest) (*party.Party, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	updated, err := h.svc.Claim(ctx, uid, req.PartyID, req.Date, req.Item, req.Claimant)
	if h.claims != nil {
		h.claims.RecordClaim(metrics.ClaimOutcome(err))
	}
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return updated, nil
}

func (h *PartyHandler) ResetSelections(ctx context.Context, req *PartyRequest) (*party.Party, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	updated, err := h.svc.ResetSelections(ctx, uid, req.PartyID)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return updated, nil
}

func (h *PartyHandler) DeleteParty(ctx context.Context, req *PartyRequest) (*models.SuccessResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteParty(ctx, uid, req.PartyID); err != nil {
		return nil, statusFromError(ctx, err)
	}

	return &models.SuccessResponse{Success: true}, nil
}

// ExportSelections returns the same CSV document and file name as the HTTP export.
func (h *PartyHandler) ExportSelections(ctx context.Context, req *PartyRequest) (*ExportResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	found, err := h.svc.GetParty(ctx, uid, req.PartyID)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}

	return &ExportResponse{
		FileName: view.ExportFileName(found.Name),
		CSV:      view.CSV(found.Selections),
	}, nil
}
