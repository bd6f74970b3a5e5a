package router

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/config"
	"github.com/patric-chuzhbe/partyplanner/internal/db/memorystorage"
	"github.com/patric-chuzhbe/partyplanner/internal/db/storage"
	"github.com/patric-chuzhbe/partyplanner/internal/ipchecker"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/metrics"
	"github.com/patric-chuzhbe/partyplanner/internal/mockstorage"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/ratelimit"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

type initOption func(*initOptions)

type initOptions struct {
	mockStorage   storage.Storage
	withMetrics   bool
	trustedSubnet string
	rateLimit     float64
	rateBurst     int
}

func withMockStorage(db storage.Storage) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

func withMetrics(trustedSubnet string) initOption {
	return func(options *initOptions) {
		options.withMetrics = true
		options.trustedSubnet = trustedSubnet
	}
}

func withRateLimit(requestsPerSecond float64, burst int) initOption {
	return func(options *initOptions) {
		options.rateLimit = requestsPerSecond
		options.rateBurst = burst
	}
}

type testRouter struct {
	server *httptest.Server
	db     storage.Storage
}

// setupTestRouter panics instead of failing when t is nil, so that Example
// functions can use it too.
func setupTestRouter(t *testing.T, optionsProto ...initOption) *testRouter {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	check := func(err error) {
		if t != nil {
			require.NoError(t, err)
		} else if err != nil {
			panic(err)
		}
	}

	cfg, err := config.New(config.WithDisableFlagsParsing(true))
	check(err)

	var db storage.Storage
	if options.mockStorage != nil {
		db = options.mockStorage
	} else {
		db, err = memorystorage.New()
		check(err)
	}

	routerOptions := []Option{
		WithBasePath(cfg.BasePath),
		WithCORS(cfg.CORSAllowedOrigin),
	}

	if options.withMetrics {
		collector := metrics.New()
		checker, err := ipchecker.New(options.trustedSubnet)
		check(err)
		routerOptions = append(routerOptions, WithMetrics(collector, checker.RequireTrustedSubnet))
	}
	if options.rateLimit > 0 {
		routerOptions = append(
			routerOptions,
			WithAuthRateLimit(ratelimit.New(options.rateLimit, options.rateBurst).Handler),
		)
	}

	theRouter := New(
		service.New(db),
		auth.New(db, cfg.JWTSecret, cfg.TokenTTL, 4),
		routerOptions...,
	)

	check(logger.Init("debug"))

	return &testRouter{
		server: httptest.NewServer(theRouter),
		db:     db,
	}
}

func (tr *testRouter) url(path string) string {
	return tr.server.URL + "/api" + path
}

func (tr *testRouter) signup(t *testing.T, username string) string {
	t.Helper()
	var result models.AuthResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.SignupRequest{Username: username, Password: "secret"}).
		SetResult(&result).
		Post(tr.url("/signup"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	return result.Token
}

func (tr *testRouter) createParty(t *testing.T, token string, partyID string) {
	t.Helper()
	resp, err := resty.New().R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreatePartyRequest{
			PartyID:   partyID,
			Name:      "Team lunch",
			StartDate: "2024-01-01",
			EndDate:   "2024-01-03",
			MenuItems: []string{"Pizza", "Salad"},
		}).
		Post(tr.url("/parties"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
}

func gzipString(input string) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	_, err := gzipWriter.Write([]byte(input))
	if err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func TestPostSignup(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()

	type tExpectedResponse struct {
		code int
		body *regexp.Regexp
	}
	type tTestCase struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name: "positive",
			body: `{"username": "alice", "password": "wonderland"}`,
			expectedResponse: tExpectedResponse{
				http.StatusCreated,
				regexp.MustCompile(`^\{"success":true,"user":\{"id":\d+,"username":"alice"\},"token":"[\w-]+\.[\w-]+\.[\w-]+"\}\s*$`),
			},
		},
		{
			name: "taken username",
			body: `{"username": "alice", "password": "another"}`,
			expectedResponse: tExpectedResponse{
				http.StatusConflict,
				regexp.MustCompile(`"error":"Username already exists"`),
			},
		},
		{
			name: "empty_JSON",
			body: `{}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`"error":"Username and password required"`),
			},
		},
		{
			name: "missing password",
			body: `{"username": "bob"}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				nil,
			},
		},
		{
			name: "not JSON",
			body: `username=bob`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				nil,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(tr.url("/signup"))
			assert.NoError(t, err, "error making HTTP request")

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode(), "Response code didn't match expected value")
			if testCase.expectedResponse.body != nil {
				assert.Regexp(t, testCase.expectedResponse.body, resp.String())
			}
		})
	}
}

func TestPostLogin(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	tr.signup(t, "alice")

	type tTestCase struct {
		name         string
		body         models.LoginRequest
		expectedCode int
		expectedBody string
	}
	testCases := []tTestCase{
		{
			name:         "positive",
			body:         models.LoginRequest{Username: "alice", Password: "secret"},
			expectedCode: http.StatusOK,
			expectedBody: `"username":"alice"`,
		},
		{
			name:         "wrong password",
			body:         models.LoginRequest{Username: "alice", Password: "guess"},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid username or password"}`,
		},
		{
			name:         "unknown user",
			body:         models.LoginRequest{Username: "mallory", Password: "secret"},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid username or password"}`,
		},
		{
			name:         "missing fields",
			body:         models.LoginRequest{Username: "alice"},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Username and password required"}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(tr.url("/login"))
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.Contains(t, resp.String(), testCase.expectedBody)
		})
	}
}

func TestPartyRoutesRequireToken(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()

	type tTestCase struct {
		method string
		path   string
	}
	testCases := []tTestCase{
		{http.MethodGet, "/parties"},
		{http.MethodPost, "/parties"},
		{http.MethodGet, "/parties/party-1"},
		{http.MethodPut, "/parties/party-1"},
		{http.MethodDelete, "/parties/party-1"},
		{http.MethodPost, "/parties/party-1/claims"},
		{http.MethodDelete, "/parties/party-1/selections"},
		{http.MethodGet, "/parties/party-1/export"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.method+" "+testCase.path, func(t *testing.T) {
			req := resty.New().R().SetAuthToken("not-a-token")
			req.Method = testCase.method
			req.URL = tr.url(testCase.path)

			resp, err := req.Send()
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
			assert.JSONEq(t, `{"error":"Authentication required"}`, resp.String())
		})
	}
}

func TestPartyLifecycle(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	token := tr.signup(t, "alice")
	client := resty.New().SetAuthToken(token).SetHeader("Content-Type", "application/json")

	tr.createParty(t, token, "party-1")

	resp, err := client.R().
		SetBody(models.CreatePartyRequest{
			PartyID:   "party-1",
			Name:      "Again",
			StartDate: "2024-01-01",
			EndDate:   "2024-01-01",
			MenuItems: []string{"Tea"},
		}).
		Post(tr.url("/parties"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode(), "duplicate party id")

	var listed models.PartiesResponse
	resp, err = client.R().SetResult(&listed).Get(tr.url("/parties"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Contains(t, listed, "party-1")
	assert.Equal(t, party.Selections{}, listed["party-1"].Selections)
	assert.Equal(t, []string{"Pizza", "Salad"}, listed["party-1"].MenuItems)

	selections := party.Selections{"2024-01-02": {"Salad": "Bob"}}
	var updated party.Party
	resp, err = client.R().
		SetBody(models.UpdatePartyRequest{Selections: selections}).
		SetResult(&updated).
		Put(tr.url("/parties/party-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, selections, updated.Selections)

	resp, err = client.R().
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"}).
		SetResult(&updated).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, party.Selections{
		"2024-01-01": {"Pizza": "Alice"},
		"2024-01-02": {"Salad": "Bob"},
	}, updated.Selections)

	resp, err = client.R().
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Carol"}).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode(), "taken cell")

	resp, err = client.R().
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Sushi", Claimant: "Carol"}).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode(), "item not on the menu")

	resp, err = client.R().Get(tr.url("/parties/party-1/export"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Team-lunch-selections.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(
		t,
		"Date,Menu Item,Selected By\n\"2024-01-01\",\"Pizza\",\"Alice\"\n\"2024-01-02\",\"Salad\",\"Bob\"\n",
		resp.String(),
	)

	resp, err = client.R().SetResult(&updated).Delete(tr.url("/parties/party-1/selections"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Empty(t, updated.Selections)

	resp, err = client.R().Delete(tr.url("/parties/party-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"success":true}`, resp.String())

	resp, err = client.R().Delete(tr.url("/parties/party-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = client.R().Get(tr.url("/parties/party-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestPostPartiesValidation(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	token := tr.signup(t, "alice")

	type tTestCase struct {
		name string
		body string
	}
	testCases := []tTestCase{
		{name: "empty_JSON", body: `{}`},
		{name: "missing menu", body: `{"partyId":"p","name":"n","startDate":"2024-01-01","endDate":"2024-01-02"}`},
		{name: "bad date", body: `{"partyId":"p","name":"n","startDate":"tomorrow","endDate":"2024-01-02","menuItems":["Tea"]}`},
		{name: "blank menu item", body: `{"partyId":"p","name":"n","startDate":"2024-01-01","endDate":"2024-01-02","menuItems":["Tea",""]}`},
		{name: "empty menu", body: `{"partyId":"p","name":"n","startDate":"2024-01-01","endDate":"2024-01-02","menuItems":[]}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(tr.url("/parties"))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		})
	}
}

func TestOwnershipIsolation(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	alice := tr.signup(t, "alice")
	bob := tr.signup(t, "bob")
	tr.createParty(t, alice, "party-1")

	client := resty.New().SetAuthToken(bob).SetHeader("Content-Type", "application/json")

	var listed models.PartiesResponse
	resp, err := client.R().SetResult(&listed).Get(tr.url("/parties"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Empty(t, listed)

	resp, err = client.R().
		SetBody(models.UpdatePartyRequest{Selections: party.Selections{}}).
		Put(tr.url("/parties/party-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = client.R().
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Bob"}).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = client.R().Delete(tr.url("/parties/party-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	token := tr.signup(t, "alice")
	tr.createParty(t, token, "party-1")

	const claimants = 8
	codes := make([]int, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := resty.New().R().
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: fmt.Sprintf("guest-%d", i)}).
				Post(tr.url("/parties/party-1/claims"))
			if err == nil {
				codes[i] = resp.StatusCode()
			}
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			winners++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, claimants-1, conflicts)
}

func TestStaleWholeDocumentWriteWins(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	token := tr.signup(t, "alice")
	tr.createParty(t, token, "party-1")
	client := resty.New().SetAuthToken(token).SetHeader("Content-Type", "application/json")

	first := party.Selections{"2024-01-01": {"Pizza": "Alice"}}
	second := party.Selections{"2024-01-02": {"Salad": "Bob"}}
	for _, selections := range []party.Selections{first, second} {
		resp, err := client.R().SetBody(models.UpdatePartyRequest{Selections: selections}).Put(tr.url("/parties/party-1"))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
	}

	var found party.Party
	resp, err := client.R().SetResult(&found).Get(tr.url("/parties/party-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, second, found.Selections, "the first writer's claim is lost")
}

func TestNullDayIsStoredAsEmpty(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()
	token := tr.signup(t, "alice")
	tr.createParty(t, token, "party-1")
	client := resty.New().SetAuthToken(token).SetHeader("Content-Type", "application/json")

	var replaced party.Party
	resp, err := client.R().
		SetBody(`{"selections":{"2024-01-01":null}}`).
		SetResult(&replaced).
		Put(tr.url("/parties/party-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, party.Selections{"2024-01-01": {}}, replaced.Selections)

	resp, err = client.R().
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"}).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var listed models.PartiesResponse
	resp, err = client.R().SetResult(&listed).Get(tr.url("/parties"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, party.Selections{"2024-01-01": {"Pizza": "Alice"}}, listed["party-1"].Selections)
}

func TestGetHealth(t *testing.T) {
	type tTestCase struct {
		name     string
		pingErr  error
		expected string
	}
	testCases := []tTestCase{
		{name: "connected", expected: `{"status":"ok","dbConnected":true}`},
		{name: "disconnected", pingErr: errors.New("connection refused"), expected: `{"status":"ok","dbConnected":false}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			db := &mockstorage.StorageMock{}
			db.On("Ping", mock.Anything).Return(testCase.pingErr)
			tr := setupTestRouter(t, withMockStorage(db))
			defer tr.server.Close()

			resp, err := resty.New().R().Get(tr.url("/health"))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
			assert.JSONEq(t, testCase.expected, resp.String())
			assert.NotEmpty(t, resp.Header().Get(logger.RequestIDHeader))
			db.AssertExpectations(t)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, errors.New("pq: relation \"users\" does not exist"))
	tr := setupTestRouter(t, withMockStorage(db))
	defer tr.server.Close()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.SignupRequest{Username: "alice", Password: "secret"}).
		Post(tr.url("/signup"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.JSONEq(t, `{"error":"Internal server error"}`, resp.String())
}

func TestBusyStorageAsksToRetry(t *testing.T) {
	lunch := party.Party{
		ID:        "party-1",
		Name:      "Team lunch",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
		MenuItems: []string{"Pizza"},
	}
	db := &mockstorage.StorageMock{}
	db.On("CreateUser", mock.Anything, mock.Anything).Return(&user.User{ID: 1, Username: "alice"}, nil)
	db.On("GetParty", mock.Anything, int64(1), "party-1").Return(&lunch, nil)
	db.On("ClaimSelection", mock.Anything, int64(1), "party-1", "2024-01-01", "Pizza", "Alice").
		Return(nil, fmt.Errorf("claim: %w", models.ErrStorageBusy))
	tr := setupTestRouter(t, withMockStorage(db))
	defer tr.server.Close()
	token := tr.signup(t, "alice")

	resp, err := resty.New().R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"}).
		Post(tr.url("/parties/party-1/claims"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	assert.Equal(t, "1", resp.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Server is busy, please try again"}`, resp.String())
}

func TestGzipRoundTrip(t *testing.T) {
	tr := setupTestRouter(t)
	defer tr.server.Close()

	body, err := gzipString(`{"username": "alice", "password": "wonderland"}`)
	require.NoError(t, err)

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("Accept-Encoding", "gzip").
		SetBody(body).
		Post(tr.url("/signup"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
	assert.Contains(t, resp.String(), `"username":"alice"`)
}

func TestAuthRateLimit(t *testing.T) {
	tr := setupTestRouter(t, withRateLimit(0.001, 2))
	defer tr.server.Close()

	codes := []int{}
	for i := 0; i < 3; i++ {
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{}`).
			Post(tr.url("/login"))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode())
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	resp, err := resty.New().R().Get(tr.url("/health"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode(), "only auth routes are limited")
}

func TestMetricsEndpoint(t *testing.T) {
	type tTestCase struct {
		name          string
		trustedSubnet string
		expectedCode  int
	}
	testCases := []tTestCase{
		{name: "trusted", trustedSubnet: "127.0.0.0/8", expectedCode: http.StatusOK},
		{name: "untrusted", trustedSubnet: "10.0.0.0/8", expectedCode: http.StatusForbidden},
		{name: "no subnet configured", trustedSubnet: "", expectedCode: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			tr := setupTestRouter(t, withMetrics(testCase.trustedSubnet))
			defer tr.server.Close()

			token := tr.signup(t, "alice")
			tr.createParty(t, token, "party-1")
			_, err := resty.New().R().
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetBody(models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"}).
				Post(tr.url("/parties/party-1/claims"))
			require.NoError(t, err)

			resp, err := resty.New().R().Get(tr.server.URL + "/metrics")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			if testCase.expectedCode == http.StatusOK {
				assert.Contains(t, resp.String(), `partyplanner_parties_claims_total{outcome="claimed"} 1`)
				assert.Contains(t, resp.String(), `route="/api/parties/{partyId}/claims"`)
			}
		})
	}
}

func TestRootBasePath(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)
	mux := New(service.New(db), auth.New(db, "secret", 0, 4), WithBasePath(""))

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.True(t, health.DBConnected)
}
