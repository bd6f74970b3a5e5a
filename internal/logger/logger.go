// Package logger provides structured logging functionality
// using the Uber zap logging library: the global leveled logger, the HTTP
// access-log middleware and request-scoped loggers carrying a request ID.
package logger

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is read from the request when present and always echoed in the response.
const RequestIDHeader = "X-Request-Id"

type contextKey struct{}

type responseData struct {
	status      int
	size        int
	wroteHeader bool
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

// Log is a global SugaredLogger instance from the zap logging library.
// It is a no-op logger until Init is called.
var Log *zap.SugaredLogger

func init() {
	Log = zap.NewNop().Sugar()
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	if !r.responseData.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

// WriteHeader records the first status code written.
func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	if r.responseData.wroteHeader {
		return
	}
	r.responseData.wroteHeader = true
	r.responseData.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Init replaces the global logger with one writing at the given level
// ("debug", "info", "warn", "error", "fatal").
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries to the output.
// It should be called when shutting down to ensure all logs are written.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// FromContext returns the request-scoped logger stored by
// WithLoggingHTTPMiddleware, or the global one.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if scoped, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok {
		return scoped
	}

	return Log
}

// RequestID returns the ID assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID and a logger
// scoped to it. An empty ID is replaced by a generated one.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, contextKey{}, Log.With("request_id", requestID))

	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// WithLoggingHTTPMiddleware assigns every request an ID, exposes a logger
// carrying it through FromContext and writes one access-log line per request
// with the method, URI, client address, status, size and duration. Server
// errors are logged at error level.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := WithRequestID(r.Context(), r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, RequestID(ctx))
		scoped := FromContext(ctx)

		responseData := &responseData{
			status: http.StatusOK,
		}
		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData:   responseData,
		}
		h.ServeHTTP(&lw, r.WithContext(ctx))

		fields := []interface{}{
			"uri", r.RequestURI,
			"method", r.Method,
			"remote", r.RemoteAddr,
			"status", responseData.status,
			"duration", time.Since(start),
			"size", responseData.size,
		}
		if responseData.status >= http.StatusInternalServerError {
			scoped.Errorw("request served", fields...)
			return
		}
		scoped.Infow("request served", fields...)
	}

	return http.HandlerFunc(logFn)
}
