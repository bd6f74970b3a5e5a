// Package client is the HTTP client of the party planner API. The bearer
// token lives in an injected KeyValueStore, so the same client serves the CLI
// (file backed) and tests (in memory).
package client

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

// Keys of the client-persisted state.
const (
	TokenKey     = "auth_token"
	ViewStateKey = "view_state"
)

// KeyValueStore persists small string values between client runs.
type KeyValueStore interface {
	// Get reports false when the key is absent.
	Get(key string) (string, bool, error)

	Set(key, value string) error

	// Delete is a no-op for an absent key.
	Delete(key string) error
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// ErrUnavailable marks a transient server failure worth retrying.
	ErrUnavailable = errors.New("service unavailable")
)

// APIError is a non-2xx answer of the API. It unwraps to one of the
// sentinel errors above when the status code has one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	}

	return nil
}

// Client calls the party planner API.
type Client struct {
	http  *resty.Client
	store KeyValueStore
}

// Option configures the client.
type Option func(*resty.Client)

// WithTimeout limits every request.
func WithTimeout(timeout time.Duration) Option {
	return func(httpClient *resty.Client) {
		httpClient.SetTimeout(timeout)
	}
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:3001/api".
func New(baseURL string, store KeyValueStore, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(httpClient)
	}

	return &Client{
		http:  httpClient,
		store: store,
	}
}

// LoggedIn reports whether a token is stored.
func (c *Client) LoggedIn() (bool, error) {
	_, ok, err := c.store.Get(TokenKey)

	return ok, err
}

// Logout forgets the stored token.
func (c *Client) Logout() error {
	return c.store.Delete(TokenKey)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetError(&models.ErrorResponse{})
}

func (c *Client) authorizedRequest(ctx context.Context) (*resty.Request, error) {
	token, ok, err := c.store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/authorizedRequest(): error while `c.store.Get()` calling: %w", err)
	}
	if !ok || token == "" {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "Authentication required"}
	}

	return c.request(ctx).SetAuthToken(token), nil
}

// check turns an error status into an *APIError. A 401 drops the stored token.
func (c *Client) check(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	message := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*models.ErrorResponse); ok && body.Error != "" {
		message = body.Error
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		if err := c.store.Delete(TokenKey); err != nil {
			return errors.Join(&APIError{StatusCode: resp.StatusCode(), Message: message}, err)
		}
	}

	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*models.AuthResponse, error) {
	var result models.AuthResponse
	resp, err := c.request(ctx).
		SetBody(models.SignupRequest{Username: username, Password: password}).
		SetResult(&result).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/authenticate(): error while `Post()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	if err := c.store.Set(TokenKey, result.Token); err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/authenticate(): error while `c.store.Set()` calling: %w", err)
	}

	return &result, nil
}

// Signup creates an account and stores its token.
func (c *Client) Signup(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/signup", username, password)
}

// Login stores a fresh token for the account.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/login", username, password)
}

// Health never needs a token.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var result models.HealthResponse
	resp, err := c.request(ctx).SetResult(&result).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/Health(): error while `Get()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) ListParties(ctx context.Context) (models.PartiesResponse, error) {
	req, err := c.authorizedRequest(ctx)
	if err != nil {
		return nil, err
	}

	result := models.PartiesResponse{}
	resp, err := req.SetResult(&result).Get("/parties")
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/ListParties(): error while `Get()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) CreateParty(ctx context.Context, request models.CreatePartyRequest) (*party.Party, error) {
	req, err := c.authorizedRequest(ctx)
	if err != nil {
		return nil, err
	}

	var result party.Party
	resp, err := req.SetBody(request).SetResult(&result).Post("/parties")
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/CreateParty(): error while `Post()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) GetParty(ctx context.Context, partyID string) (*party.Party, error) {
	return c.partyCall(ctx, http.MethodGet, "/parties/{partyId}", partyID, nil)
}

// ReplaceSelections overwrites the whole selections document of the party.
func (c *Client) ReplaceSelections(ctx context.Context, partyID string, selections party.Selections) (*party.Party, error) {
	return c.partyCall(
		ctx,
		http.MethodPut,
		"/parties/{partyId}",
		partyID,
		models.UpdatePartyRequest{Selections: selections},
	)
}

// Claim asks the server to assign the claimant to one (date, item) cell.
// A taken cell answers with an error that unwraps to ErrConflict.
func (c *Client) Claim(ctx context.Context, partyID string, claim models.ClaimRequest) (*party.Party, error) {
	return c.partyCall(ctx, http.MethodPost, "/parties/{partyId}/claims", partyID, claim)
}

func (c *Client) ResetSelections(ctx context.Context, partyID string) (*party.Party, error) {
	return c.partyCall(ctx, http.MethodDelete, "/parties/{partyId}/selections", partyID, nil)
}

func (c *Client) partyCall(ctx context.Context, method, path, partyID string, body any) (*party.Party, error) {
	req, err := c.authorizedRequest(ctx)
	if err != nil {
		return nil, err
	}

	var result party.Party
	req.SetPathParam("partyId", partyID).SetResult(&result)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("in internal/client/client.go/partyCall(): error while `req.Execute()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) DeleteParty(ctx context.Context, partyID string) error {
	req, err := c.authorizedRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetPathParam("partyId", partyID).Delete("/parties/{partyId}")
	if err != nil {
		return fmt.Errorf("in internal/client/client.go/DeleteParty(): error while `Delete()` calling: %w", err)
	}

	return c.check(resp)
}

// Export downloads the CSV of the party's selections together with the
// file name suggested by the server.
func (c *Client) Export(ctx context.Context, partyID string) ([]byte, string, error) {
	req, err := c.authorizedRequest(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, err := req.
		SetHeader("Accept", "text/csv").
		SetPathParam("partyId", partyID).
		Get("/parties/{partyId}/export")
	if err != nil {
		return nil, "", fmt.Errorf("in internal/client/client.go/Export(): error while `Get()` calling: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, "", err
	}

	fileName := ""
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil {
		fileName = params["filename"]
	}

	return resp.Body(), fileName, nil
}
