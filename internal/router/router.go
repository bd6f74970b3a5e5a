// Package router wires the HTTP API of the party planner: account signup and
// login, the ownership-scoped party endpoints, the health check and the
// metrics endpoint, together with their middlewares.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/cors"
	"github.com/patric-chuzhbe/partyplanner/internal/gzippedhttp"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
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

type authenticator interface {
	Register(ctx context.Context, username, password string) (*auth.Session, error)

	Authenticate(ctx context.Context, username, password string) (*auth.Session, error)

	RequireBearer(h http.Handler) http.Handler
}

type metricsCollector interface {
	InstrumentHandler(next http.Handler) http.Handler

	RecordClaim(outcome string)

	Handler() http.Handler
}

type middleware = func(http.Handler) http.Handler

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	service  partyService
	auth     authenticator
	validate *validator.Validate
	metrics  metricsCollector

	basePath            string
	authRateLimit       middleware
	metricsAccessFilter middleware
	corsAllowedOrigin   string
}

// Option configures optional parts of the router.
type Option func(*Router)

// WithBasePath mounts the API under the given prefix, e.g. "/api".
func WithBasePath(basePath string) Option {
	return func(rt *Router) {
		rt.basePath = basePath
	}
}

// WithMetrics instruments every request and serves /metrics behind the access filter.
func WithMetrics(metrics metricsCollector, accessFilter middleware) Option {
	return func(rt *Router) {
		rt.metrics = metrics
		rt.metricsAccessFilter = accessFilter
	}
}

// WithAuthRateLimit throttles the signup and login endpoints.
func WithAuthRateLimit(limit middleware) Option {
	return func(rt *Router) {
		rt.authRateLimit = limit
	}
}

// WithCORS enables cross-origin requests from the given origin ("*" for any).
func WithCORS(allowedOrigin string) Option {
	return func(rt *Router) {
		rt.corsAllowedOrigin = allowedOrigin
	}
}

// New builds the chi router serving the API.
func New(
	svc partyService,
	authService authenticator,
	opts ...Option,
) *chi.Mux {
	rt := &Router{
		service:  svc,
		auth:     authService,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	if rt.metrics != nil {
		router.Use(rt.metrics.InstrumentHandler)
	}
	if rt.corsAllowedOrigin != "" {
		router.Use(cors.New(rt.corsAllowedOrigin))
	}
	router.Use(
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	if rt.metrics != nil {
		metricsHandler := rt.metrics.Handler()
		if rt.metricsAccessFilter != nil {
			metricsHandler = rt.metricsAccessFilter(metricsHandler)
		}
		router.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	if rt.basePath == "" || rt.basePath == "/" {
		rt.mountAPI(router)
	} else {
		router.Route(rt.basePath, rt.mountAPI)
	}

	return router
}

func (rt *Router) mountAPI(r chi.Router) {
	r.Get("/health", rt.GetHealth)

	r.Group(func(r chi.Router) {
		if rt.authRateLimit != nil {
			r.Use(rt.authRateLimit)
		}
		r.Post("/signup", rt.PostSignup)
		r.Post("/login", rt.PostLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.auth.RequireBearer)
		r.Get("/parties", rt.GetParties)
		r.Post("/parties", rt.PostParties)
		r.Route("/parties/{partyId}", func(r chi.Router) {
			r.Get("/", rt.GetParty)
			r.Put("/", rt.PutParty)
			r.Delete("/", rt.DeleteParty)
			r.Post("/claims", rt.PostClaim)
			r.Delete("/selections", rt.DeleteSelections)
			r.Get("/export", rt.GetExport)
		})
	})
}

func writeJSON(response http.ResponseWriter, status int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeErrorMessage(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.ErrorResponse{Error: message})
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported with a generic message.
func writeError(response http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeErrorMessage(response, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		writeErrorMessage(response, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorMessage(response, http.StatusBadRequest, "Invalid username or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeErrorMessage(response, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, models.ErrUserAlreadyExists):
		writeErrorMessage(response, http.StatusConflict, "Username already exists")
	case errors.Is(err, models.ErrPartyAlreadyExists):
		writeErrorMessage(response, http.StatusConflict, "Party ID already exists")
	case errors.Is(err, models.ErrSelectionAlreadyClaimed):
		writeErrorMessage(response, http.StatusConflict, "This item has already been selected for this date")
	case errors.Is(err, models.ErrPartyNotFound):
		writeErrorMessage(response, http.StatusNotFound, "Party not found")
	case errors.Is(err, models.ErrStorageBusy):
		response.Header().Set("Retry-After", "1")
		writeErrorMessage(response, http.StatusServiceUnavailable, "Server is busy, please try again")
	default:
		logger.FromContext(request.Context()).Errorw(
			"request failed",
			"method", request.Method,
			"uri", request.RequestURI,
			zap.Error(err),
		)
		writeErrorMessage(response, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody reads a JSON body into dst and validates it with the struct tags.
func (rt *Router) decodeBody(request *http.Request, dst any) error {
	if err := json.NewDecoder(request.Body).Decode(dst); err != nil {
		return err
	}

	return rt.validate.Struct(dst)
}

func userID(request *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		return 0, auth.ErrUnauthenticated
	}

	return id, nil
}
