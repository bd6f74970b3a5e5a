package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	type tExpected struct {
		code        int
		allowOrigin string
	}
	type tTestCase struct {
		name          string
		allowedOrigin string
		method        string
		origin        string
		preflight     bool
		expected      tExpected
	}
	testCases := []tTestCase{
		{
			name:          "any origin",
			allowedOrigin: "*",
			method:        http.MethodGet,
			origin:        "http://localhost:5173",
			expected:      tExpected{code: http.StatusTeapot, allowOrigin: "http://localhost:5173"},
		},
		{
			name:          "foreign origin",
			allowedOrigin: "https://party.example",
			method:        http.MethodGet,
			origin:        "http://evil.example",
			expected:      tExpected{code: http.StatusTeapot},
		},
		{
			name:          "preflight",
			allowedOrigin: "https://party.example",
			method:        http.MethodOptions,
			origin:        "https://party.example",
			preflight:     true,
			expected:      tExpected{code: http.StatusNoContent, allowOrigin: "https://party.example"},
		},
		{
			name:          "no origin",
			allowedOrigin: "*",
			method:        http.MethodGet,
			expected:      tExpected{code: http.StatusTeapot},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(testCase.method, "/api/parties", nil)
			if testCase.origin != "" {
				request.Header.Set("Origin", testCase.origin)
			}
			if testCase.preflight {
				request.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			recorder := httptest.NewRecorder()

			New(testCase.allowedOrigin)(next).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expected.code, recorder.Code)
			assert.Equal(t, testCase.expected.allowOrigin, recorder.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
