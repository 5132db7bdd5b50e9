package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/election"
	"github.com/shaiso/exosphere/internal/memstore"
	"github.com/shaiso/exosphere/internal/registry"
	"github.com/shaiso/exosphere/internal/scheduler"
)

type fakeElection struct {
	state election.State
	self  *domain.SchedulerInstance
}

func (f *fakeElection) State() election.State           { return f.state }
func (f *fakeElection) Self() *domain.SchedulerInstance { return f.self }

type fakeSweeps struct {
	last *scheduler.SweepStats
}

func (f *fakeSweeps) LastSweep() *scheduler.SweepStats { return f.last }

type failingRegistry struct{}

func (failingRegistry) FindInstances(context.Context, registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	return nil, errors.New("connection refused")
}

func (failingRegistry) ListJobs(context.Context) ([]domain.JobDefinition, error) {
	return nil, errors.New("connection refused")
}

func (failingRegistry) FindJobByName(context.Context, string) (*domain.JobDefinition, error) {
	return nil, errors.New("connection refused")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	mux   *http.ServeMux
	store *memstore.Store
	elect *fakeElection
	sweep *fakeSweeps
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	ts := &testServer{
		mux:   http.NewServeMux(),
		store: store,
		elect: &fakeElection{state: election.StateDormant},
		sweep: &fakeSweeps{},
	}

	h := NewHandler(Config{
		Election: ts.elect,
		Sweeps:   ts.sweep,
		Registry: registry.NewClient(registry.Config{Store: store, MaxRetries: -1, Logger: discardLogger()}),
		Logger:   discardLogger(),
	})
	h.RegisterRoutes(ts.mux)
	return ts
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	self := domain.NewSchedulerInstance("host-a", 0.5, time.Now().UTC())
	ts.elect.state = election.StatePrimary
	ts.elect.self = self
	ts.sweep.last = &scheduler.SweepStats{Jobs: 3, Ready: 1, Published: 1}

	rec := ts.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, election.StatePrimary, resp.Data.State)
	require.NotNil(t, resp.Data.Instance)
	assert.Equal(t, self.ID, resp.Data.Instance.ID)
	require.NotNil(t, resp.Data.LastSweep)
	assert.Equal(t, 3, resp.Data.LastSweep.Jobs)
	assert.Equal(t, 1, resp.Data.LastSweep.Published)
}

func TestStatus_BeforeFirstSweep(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "last_sweep")
	assert.Contains(t, rec.Body.String(), `"state":"DORMANT"`)
}

func TestListInstances(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	a := domain.NewSchedulerInstance("host-a", 0.1, time.Now().UTC())
	b := domain.NewSchedulerInstance("host-b", 0.2, time.Now().UTC())
	require.NoError(t, ts.store.CreateInstance(ctx, a))
	require.NoError(t, ts.store.CreateInstance(ctx, b))
	require.NoError(t, ts.store.SetPrimary(ctx, a.ID, true))

	var resp struct {
		Data  []domain.SchedulerInstance `json:"data"`
		Total int                        `json:"total"`
	}

	rec := ts.get(t, "/api/v1/instances")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	rec = ts.get(t, "/api/v1/instances?primary=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, a.ID, resp.Data[0].ID)
}

func TestJobs(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.UpsertJob(context.Background(), &domain.JobDefinition{Name: "daily", Cron: "@daily"}))

	rec := ts.get(t, "/api/v1/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = ts.get(t, "/api/v1/jobs/daily")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data domain.JobDefinition `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "@daily", resp.Data.Cron)

	rec = ts.get(t, "/api/v1/jobs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), string(ErrCodeNotFound))
}

func TestRegistryUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(Config{
		Election: &fakeElection{state: election.StateDormant},
		Sweeps:   &fakeSweeps{},
		Registry: failingRegistry{},
		Logger:   discardLogger(),
	}).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), string(ErrCodeUnavailable))
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
