package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)

	return string(body)
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()

	router := chi.NewRouter()
	router.Use(m.InstrumentHandler)
	router.Get("/api/parties/{partyId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"party-1", "party-2"} {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/parties/"+id, nil))
		require.Equal(t, http.StatusNotFound, recorder.Code)
	}

	body := scrape(t, m)
	assert.Contains(
		t,
		body,
		`partyplanner_http_requests_total{method="GET",route="/api/parties/{partyId}",status="404"} 2`,
	)
	assert.NotContains(t, body, "party-1")
	assert.Contains(t, body, "partyplanner_http_inflight_requests 0")
}

func TestRecordClaim(t *testing.T) {
	m := New()

	m.RecordClaim(ClaimOutcomeClaimed)
	m.RecordClaim(ClaimOutcomeConflict)
	m.RecordClaim(ClaimOutcomeConflict)

	body := scrape(t, m)
	assert.Contains(t, body, `partyplanner_parties_claims_total{outcome="claimed"} 1`)
	assert.Contains(t, body, `partyplanner_parties_claims_total{outcome="conflict"} 2`)
}

func TestInstancesAreIndependent(t *testing.T) {
	first, second := New(), New()
	first.RecordClaim(ClaimOutcomeError)

	assert.Contains(t, scrape(t, first), `outcome="error"`)
	assert.NotContains(t, scrape(t, second), `outcome="error"`)
}

func TestClaimOutcome(t *testing.T) {
	type tTestCase struct {
		name     string
		err      error
		expected string
	}
	testCases := []tTestCase{
		{name: "claimed", err: nil, expected: ClaimOutcomeClaimed},
		{name: "taken", err: fmt.Errorf("wrapped: %w", models.ErrSelectionAlreadyClaimed), expected: ClaimOutcomeConflict},
		{name: "invalid", err: service.ErrInvalidInput, expected: ClaimOutcomeRejected},
		{name: "missing party", err: models.ErrPartyNotFound, expected: ClaimOutcomeRejected},
		{name: "busy", err: models.ErrStorageBusy, expected: ClaimOutcomeError},
		{name: "other", err: errors.New("boom"), expected: ClaimOutcomeError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, ClaimOutcome(testCase.err))
		})
	}
}
