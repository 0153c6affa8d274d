package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/dbsync/internal/api"
	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/prudhvinik1/dbsync/internal/scheduler"
	"github.com/prudhvinik1/dbsync/internal/services"
)

type recordingReceiver struct {
	rows []*models.Row
	err  error
}

func (r *recordingReceiver) HandleBatch(_ context.Context, rows []*models.Row) error {
	r.rows = rows
	return r.err
}

type staticStatus scheduler.Status

func (s staticStatus) Status() scheduler.Status { return scheduler.Status(s) }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

const twoRows = `[
	{"id":"6f1c2a7e-3f52-4b8e-9a55-0f4f2c1d9b11","name":"Name1","email":"name1@email.com","age":10,"completionStatus":2},
	{"id":"0b7d9a64-5e0e-4a63-8a8f-3c6b1f0e2d22","name":"Name2","email":"name2@email.com","age":11,"completionStatus":2}
]`

func serve(t *testing.T, handler http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pinger         pingerFunc
		expectedStatus int
	}{
		{name: "store reachable", pinger: func(context.Context) error { return nil }, expectedStatus: http.StatusOK},
		{name: "store down", pinger: func(context.Context) error { return errors.New("dial tcp: refused") }, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, api.NewServer(api.WithPinger(tt.pinger)), http.MethodGet, "/readiness", "", nil)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestReceiveSync(t *testing.T) {
	t.Parallel()

	receiver := &recordingReceiver{}
	server := api.NewServer(api.WithReceiveHandler(receiver))

	rr := serve(t, server, http.MethodPost, "/api/receive-sync", twoRows,
		http.Header{"Content-Type": {"application/json"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, api.ReceivedResponse, rr.Body.String())
	assert.Equal(t, "Data received successfully!", rr.Body.String())
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))

	require.Len(t, receiver.rows, 2)
	assert.Equal(t, uuid.MustParse("6f1c2a7e-3f52-4b8e-9a55-0f4f2c1d9b11"), receiver.rows[0].ID)
	assert.Equal(t, models.StatusCompleted, receiver.rows[1].CompletionStatus)
}

func TestReceiveSync_DefaultHandler(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(), http.MethodPost, "/api/receive-sync", twoRows, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, api.ReceivedResponse, rr.Body.String())
}

func TestReceiveSync_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `[{"id":`},
		{name: "object instead of array", body: `{"id":"6f1c2a7e-3f52-4b8e-9a55-0f4f2c1d9b11"}`},
		{name: "null body", body: `null`},
		{name: "empty body", body: ``},
		{name: "bad uuid", body: `[{"id":"nope","name":"a","email":"b","age":1,"completionStatus":0}]`},
		{name: "unknown status", body: `[{"id":"6f1c2a7e-3f52-4b8e-9a55-0f4f2c1d9b11","completionStatus":7}]`},
		{name: "null element", body: `[null]`},
		{name: "trailing junk", body: `[] trailing-junk`},
		{name: "second array", body: `[] []`},
		{name: "trailing object", body: `[{"id":"6f1c2a7e-3f52-4b8e-9a55-0f4f2c1d9b11","completionStatus":0}]{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			receiver := &recordingReceiver{}
			rr := serve(t, api.NewServer(api.WithReceiveHandler(receiver)), http.MethodPost, "/api/receive-sync", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Nil(t, receiver.rows)
		})
	}
}

func TestReceiveSync_EmptyArray(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(), http.MethodPost, "/api/receive-sync", `[]`, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReceiveSync_HandlerError(t *testing.T) {
	t.Parallel()

	receiver := &recordingReceiver{err: errors.New("queue full")}
	rr := serve(t, api.NewServer(api.WithReceiveHandler(receiver)), http.MethodPost, "/api/receive-sync", twoRows, nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestReceiveSync_BearerAuth(t *testing.T) {
	t.Parallel()

	tokens := services.NewTokenService("s3cret", time.Minute)
	valid, err := tokens.Generate()
	require.NoError(t, err)
	foreign, err := services.NewTokenService("other", time.Minute).Generate()
	require.NoError(t, err)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
	}{
		{name: "valid token", authorization: "Bearer " + valid, expectedStatus: http.StatusOK},
		{name: "lower-case scheme", authorization: "bearer " + valid, expectedStatus: http.StatusOK},
		{name: "missing header", authorization: "", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic Zm9vOmJhcg==", expectedStatus: http.StatusUnauthorized},
		{name: "foreign token", authorization: "Bearer " + foreign, expectedStatus: http.StatusUnauthorized},
		{name: "garbage token", authorization: "Bearer abc.def.ghi", expectedStatus: http.StatusUnauthorized},
	}

	server := api.NewServer(api.WithTokenVerifier(tokens))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			header := http.Header{}
			if tt.authorization != "" {
				header.Set("Authorization", tt.authorization)
			}
			rr := serve(t, server, http.MethodPost, "/api/receive-sync", twoRows, header)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}

	t.Run("other routes stay open", func(t *testing.T) {
		t.Parallel()

		rr := serve(t, server, http.MethodGet, "/api/path?param=x", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestPathEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{name: "with param", target: "/api/path?param=abc", expectedStatus: http.StatusOK},
		{name: "empty param value", target: "/api/path?param=", expectedStatus: http.StatusOK},
		{name: "missing param", target: "/api/path", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, api.NewServer(), http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Empty(t, rr.Body.String())
			}
		})
	}
}

func TestSyncStatusEndpoint(t *testing.T) {
	t.Parallel()

	last := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	server := api.NewServer(api.WithStatusProvider(staticStatus{
		Running:        true,
		Interval:       "5s",
		LastRunTime:    &last,
		TotalRuns:      3,
		SuccessfulRuns: 2,
		FailedRuns:     1,
		LastError:      "persist: disk full",
	}))

	rr := serve(t, server, http.MethodGet, "/api/sync/status", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["running"])
	assert.Equal(t, float64(3), body["totalRuns"])
	assert.Equal(t, "persist: disk full", body["lastError"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["lastRunTime"])
	assert.NotContains(t, body, "nextRunTime")
}

func TestSyncStatusEndpoint_NotConfigured(t *testing.T) {
	t.Parallel()

	rr := serve(t, api.NewServer(), http.MethodGet, "/api/sync/status", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("dbsync_rows_completed_total 4\n"))
	})

	rr := serve(t, api.NewServer(api.WithMetricsHandler(metrics)), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dbsync_rows_completed_total")

	rr = serve(t, api.NewServer(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	server := api.NewServer(api.WithMiddlewares(api.LoggingMiddleware))
	rr := serve(t, server, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
}
