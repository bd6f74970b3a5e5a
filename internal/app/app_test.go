package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/partyplanner/internal/config"
	"github.com/patric-chuzhbe/partyplanner/internal/grpcserver"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
)

func TestGetAvailableStorageType(t *testing.T) {
	type tTestCase struct {
		name     string
		cfg      config.Config
		expected int
	}
	testCases := []tTestCase{
		{
			name:     "postgres wins over everything",
			cfg:      config.Config{DatabaseDSN: "postgres://localhost/db", SQLitePath: "db.sqlite", DBFileName: "db.json"},
			expected: models.StorageTypePostgresql,
		},
		{
			name:     "sqlite wins over a file",
			cfg:      config.Config{SQLitePath: "db.sqlite", DBFileName: "db.json"},
			expected: models.StorageTypeSQLite,
		},
		{
			name:     "file",
			cfg:      config.Config{DBFileName: "db.json"},
			expected: models.StorageTypeFile,
		},
		{
			name:     "memory by default",
			cfg:      config.Config{},
			expected: models.StorageTypeMemory,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, getAvailableStorageType(&testCase.cfg))
		})
	}
}

func TestNew(t *testing.T) {
	type tTestCase struct {
		name string
		env  map[string]string
	}
	testCases := []tTestCase{
		{name: "memory", env: map[string]string{}},
		{name: "json file", env: map[string]string{"FILE_STORAGE_PATH": filepath.Join(t.TempDir(), "db.json")}},
		{name: "sqlite", env: map[string]string{"SQLITE_PATH": filepath.Join(t.TempDir(), "party.db")}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("SQLITE_PATH", "")
			t.Setenv("FILE_STORAGE_PATH", "")
			t.Setenv("TRUSTED_SUBNET", "")
			for key, value := range testCase.env {
				t.Setenv(key, value)
			}

			theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, theApp.db.Close())
				theApp.Close()
			}()

			request := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			recorder := httptest.NewRecorder()
			theApp.Handler().ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.JSONEq(t, `{"status":"ok","dbConnected":true}`, recorder.Body.String())
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Setenv("TRUSTED_SUBNET", "not-a-subnet")

	_, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	assert.Error(t, err)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func TestServeStartsGRPC(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("FILE_STORAGE_PATH", "")
	t.Setenv("TRUSTED_SUBNET", "")
	t.Setenv("SERVER_ADDRESS", freeAddr(t))
	grpcAddr := freeAddr(t)
	t.Setenv("GRPC_ADDRESS", grpcAddr)

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()
	require.NotNil(t, theApp.grpcServer)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- theApp.serve(ctx)
	}()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer checkCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(
		checkCtx,
		&healthpb.HealthCheckRequest{Service: grpcserver.ServiceName},
		grpc.WaitForReady(true),
	)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}

func TestNewWithoutGRPCAddress(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("FILE_STORAGE_PATH", "")
	t.Setenv("TRUSTED_SUBNET", "")
	t.Setenv("GRPC_ADDRESS", "")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, theApp.db.Close())
		theApp.Close()
	}()

	assert.Nil(t, theApp.grpcServer)
}
