package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/db"
	"bulk-mail-verify-go/internal/metrics"
	"bulk-mail-verify-go/internal/model"
	"bulk-mail-verify-go/internal/ratelimit"
	"bulk-mail-verify-go/internal/scheduler"
	"bulk-mail-verify-go/internal/store"
	"bulk-mail-verify-go/internal/verifier"
)

// stubProvider accepts every batch and reports it complete immediately with
// one deliverable result per email.
type stubProvider struct{}

func (stubProvider) SubmitBatch(_ context.Context, _ model.Mode, emails []string) (string, error) {
	return "stub-batch", nil
}

func (stubProvider) BatchStatus(_ context.Context, _ model.Mode, batchID string) (bouncer.BatchStatus, error) {
	return bouncer.BatchStatus{BatchID: batchID, Status: "completed", Processed: 1, Total: 1}, nil
}

func (stubProvider) DownloadResults(_ context.Context, _ model.Mode, _ string) ([]bouncer.Result, error) {
	return []bouncer.Result{{Email: "a@example.com", Status: "deliverable"}}, nil
}

type testServer struct {
	t     *testing.T
	db    *gorm.DB
	store *store.Store
	sched *scheduler.Scheduler
	h     *Handlers
	r     *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	st := store.New(gdb, 10)
	sched := scheduler.New()
	t.Cleanup(func() {
		if sched.IsRunning() {
			_ = sched.Stop()
		}
	})

	v := verifier.NewService(
		st,
		stubProvider{},
		ratelimit.NewWindow(gdb, 100, 0),
		sched,
		metrics.NewMetrics(prometheus.NewRegistry()),
		config.SchedulerConfig{
			CreateInterval:    time.Minute,
			SweepInterval:     time.Minute,
			ReconcileInterval: time.Minute,
			PollDelay:         time.Minute,
			MaxPollAttempts:   10,
		},
		config.LimitsConfig{MaxActiveBatches: 10, MaxBatchSize: 100, RateLimitQuota: 100},
	)
	v.RegisterJobs()

	h := NewHandlers(gdb, st, v, sched)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.SetupRoutes(r, nil)

	return &testServer{t: t, db: gdb, store: st, sched: sched, h: h, r: r}
}

func (s *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) seedBatch(mode model.Mode, id, status string, age time.Duration) {
	now := time.Now().Add(-age)
	batch := model.BouncerBatch{ID: id, Status: status, EmailCount: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(s.t, s.db.Table(mode.Tables().BouncerBatches).Create(&batch).Error)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.request(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	assert.Equal(t, "stopped", resp.Metrics["scheduler"])
}

func TestGetBatches(t *testing.T) {
	s := newTestServer(t)
	s.seedBatch(model.ModeDeliverability, "bb-old", model.BouncerStatusCompleted, time.Hour)
	s.seedBatch(model.ModeDeliverability, "bb-new", model.BouncerStatusPending, 0)
	s.seedBatch(model.ModeCatchall, "bb-cat", model.BouncerStatusPending, 0)

	w := s.request(http.MethodGet, "/api/v1/batches")
	require.Equal(t, http.StatusOK, w.Code)

	var batches []model.BouncerBatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batches))
	require.Len(t, batches, 2)
	assert.Equal(t, "bb-new", batches[0].ID)
	assert.Equal(t, "bb-old", batches[1].ID)

	// The catchall pipeline has its own listing
	w = s.request(http.MethodGet, "/api/v1/batches?mode=catchall")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, "bb-cat", batches[0].ID)

	w = s.request(http.MethodGet, "/api/v1/batches?mode=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/api/v1/batches?limit=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBatch(t *testing.T) {
	s := newTestServer(t)
	s.seedBatch(model.ModeDeliverability, "bb-1", model.BouncerStatusProcessing, 0)

	w := s.request(http.MethodGet, "/api/v1/batches/bb-1")
	require.Equal(t, http.StatusOK, w.Code)

	var batch model.BouncerBatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, "bb-1", batch.ID)
	assert.Equal(t, model.BouncerStatusProcessing, batch.Status)

	w = s.request(http.MethodGet, "/api/v1/batches/bb-2")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A deliverability batch is invisible through the catchall pipeline
	w = s.request(http.MethodGet, "/api/v1/batches/bb-1?mode=catchall")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.request(http.MethodGet, "/api/v1/scheduler/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Status        string                       `json:"status"`
		Jobs          map[string]JobStatusResponse `json:"jobs"`
		PendingTimers int                          `json:"pending_timers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "stopped", status.Status)
	assert.Len(t, status.Jobs, 6)

	w = s.request(http.MethodPost, "/api/v1/scheduler/start")
	require.Equal(t, http.StatusOK, w.Code)

	// Starting twice fails
	w = s.request(http.MethodPost, "/api/v1/scheduler/start")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = s.request(http.MethodGet, "/api/v1/scheduler/status")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)

	w = s.request(http.MethodPost, "/api/v1/scheduler/stop")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunOnceEndpoint(t *testing.T) {
	s := newTestServer(t)

	e := model.Email{Address: "a@example.com", Stripped: "a@example.com", CreatedAt: time.Now()}
	require.NoError(t, s.db.Create(&e).Error)
	tables := model.ModeDeliverability.Tables()
	vb := model.VerificationBatch{Status: model.BatchStatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, s.db.Table(tables.VerificationBatches).Create(&vb).Error)
	link := model.VerificationBatchEmail{BatchID: vb.ID, EmailID: e.ID}
	require.NoError(t, s.db.Table(tables.VerificationBatchEmails).Create(&link).Error)

	w := s.request(http.MethodPost, "/api/v1/scheduler/run-once?mode=deliverability")
	require.Equal(t, http.StatusOK, w.Code)

	var got model.VerificationBatch
	require.NoError(t, s.db.Table(tables.VerificationBatches).Where("id = ?", vb.ID).First(&got).Error)
	assert.Equal(t, model.BatchStatusCompleted, got.Status)

	w = s.request(http.MethodPost, "/api/v1/scheduler/run-once?mode=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
