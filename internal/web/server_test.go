package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shipload/internal/config"
	"github.com/JonMunkholm/shipload/internal/core"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRunner struct {
	mu    sync.Mutex
	calls []core.Sources
	run   func(ctx context.Context, src core.Sources) (*core.RunResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, src core.Sources) (*core.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()
	return f.run(ctx, src)
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Engine() string                 { return "sqlite" }
func (f fakeHealth) Ping(ctx context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Sources: config.SourcesConfig{
			Direct:      "a.csv",
			JoinedLeft:  "b.csv",
			JoinedRight: "c.csv",
			JoinKey:     "shipment_identifier",
		},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}
}

func newTestServer(runner Runner, health Health) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(runner, health, testConfig(), log)
}

func committed() *core.RunResult {
	return &core.RunResult{
		RunID:  uuid.New(),
		State:  core.StateCommitted,
		Direct: core.LoadStats{Source: core.PassDirect, Rows: 1, Inserted: 1},
	}
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ============================================================================
// POST /api/runs
// ============================================================================

func TestHandleRun_Committed(t *testing.T) {
	want := committed()
	runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		return want, nil
	}}
	s := newTestServer(runner, fakeHealth{})

	rec := do(t, s, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "committed", body["state"])
	assert.Equal(t, want.RunID.String(), body["run_id"])

	require.Len(t, runner.calls, 1)
	assert.Equal(t, core.Sources{
		Direct:      "a.csv",
		JoinedLeft:  "b.csv",
		JoinedRight: "c.csv",
		JoinKey:     "shipment_identifier",
	}, runner.calls[0])
	assert.Same(t, want, s.Latest())
}

func TestHandleRun_FailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "source error",
			err:        &core.SourceError{Source: "a.csv", Column: "product", Err: core.ErrMissingColumn},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "store error",
			err:        &core.StoreError{Op: "insert shipment", Err: errors.New("disk I/O error")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("load cancelled: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
				msg := core.MapError(tt.err)
				return &core.RunResult{RunID: uuid.New(), State: core.StateRolledBack, Error: &msg}, tt.err
			}}
			s := newTestServer(runner, fakeHealth{})

			rec := do(t, s, http.MethodPost, "/api/runs")
			require.Equal(t, tt.wantStatus, rec.Code)

			body := decode[map[string]any](t, rec)
			assert.Equal(t, "rolled_back", body["state"])
			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok, "error object present")
			assert.Equal(t, core.MapError(tt.err).Code, errBody["code"])

			require.NotNil(t, s.Latest())
			assert.Equal(t, core.StateRolledBack, s.Latest().State)
		})
	}
}

func TestHandleRun_NilResult(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		return nil, errors.New("connection refused")
	}}
	s := newTestServer(runner, fakeHealth{})

	rec := do(t, s, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "DB004", body.Code)
	assert.Nil(t, s.Latest())
}

func TestHandleRun_OneAtATime(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		close(entered)
		<-release
		return committed(), nil
	}}
	s := newTestServer(runner, fakeHealth{})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		first <- rec
	}()
	<-entered

	rec := do(t, s, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RUN001", decode[ErrorResponse](t, rec).Code)

	health := decode[HealthResponse](t, do(t, s, http.MethodGet, "/healthz"))
	assert.True(t, health.Run.Active)

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitForRun(waitCtx), context.DeadlineExceeded)

	close(release)
	require.Equal(t, http.StatusOK, (<-first).Code)
	require.NoError(t, s.WaitForRun(context.Background()))

	// The guard is released once the first run returns.
	runner.run = func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		return committed(), nil
	}
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/runs").Code)
	assert.Len(t, runner.calls, 2)
}

func TestHandleRun_TimeoutSetsDeadline(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("no deadline")
		}
		return committed(), nil
	}}
	cfg := testConfig()
	cfg.Run.Timeout = time.Second
	s := NewServer(runner, fakeHealth{}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/runs").Code)
}

func TestHandleRun_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeRunner{}, fakeHealth{})
	rec := do(t, s, http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ============================================================================
// GET /api/runs/latest
// ============================================================================

func TestHandleLatestRun(t *testing.T) {
	res := committed()
	runner := &fakeRunner{run: func(ctx context.Context, src core.Sources) (*core.RunResult, error) {
		return res, nil
	}}
	s := newTestServer(runner, fakeHealth{})

	rec := do(t, s, http.MethodGet, "/api/runs/latest")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN003", decode[ErrorResponse](t, rec).Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/runs").Code)

	rec = do(t, s, http.MethodGet, "/api/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.RunID.String(), decode[map[string]any](t, rec)["run_id"])
}

// ============================================================================
// /healthz and /metrics
// ============================================================================

func TestHandleHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, fakeHealth{}), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Status: "ok", Engine: "sqlite"}, decode[HealthResponse](t, rec))


	rec = do(t, newTestServer(&fakeRunner{}, fakeHealth{err: errors.New("unable to open database file")}), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "unavailable", body.Status)
	assert.NotEmpty(t, body.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, fakeHealth{}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "shipload_run_duration_seconds"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, fakeHealth{}), http.MethodGet, "/healthz")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

// ============================================================================
// statusFor
// ============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrRunInProgress, http.StatusConflict},
		{&core.SourceError{Source: "x", Err: core.ErrMalformedValue}, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("load cancelled: %w", context.Canceled), 499},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
