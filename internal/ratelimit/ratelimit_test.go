package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	limiter := New(0.001, 2)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remoteAddr string) int {
		request := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		request.RemoteAddr = remoteAddr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "other clients keep their own bucket")
}

func TestAllowDropsMapWhenFull(t *testing.T) {
	limiter := New(0.001, 1)
	assert.True(t, limiter.Allow("first"))
	assert.False(t, limiter.Allow("first"))

	for i := 0; len(limiter.limiters) < maxTrackedClients; i++ {
		limiter.limiters[fmt.Sprintf("client-%d", i)] = nil
	}
	assert.True(t, limiter.Allow("newcomer"))
	assert.Len(t, limiter.limiters, 1)
	assert.True(t, limiter.Allow("first"), "a reset map forgets the exhausted bucket")
}
