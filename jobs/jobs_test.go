package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/tickethub/tickethub-web/internal/jobs"
	"github.com/tickethub/tickethub-web/internal/observability"
)

type fakeWarmer struct {
	pages, limit int
	warmed       int
	err          error
}

func (f *fakeWarmer) Warm(_ context.Context, pages, limit int) (int, error) {
	f.pages, f.limit = pages, limit
	return f.warmed, f.err
}

func newJob(w Warmer) *EventsWarmupJob {
	return NewEventsWarmupJob(w, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestEventsWarmupAppliesDefaults(t *testing.T) {
	warmer := &fakeWarmer{warmed: 3}
	task, err := NewEventsWarmTask(EventsWarmPayload{})
	require.NoError(t, err)
	require.NoError(t, newJob(warmer).Handle(context.Background(), task))
	assert.Equal(t, 3, warmer.pages)
	assert.Equal(t, 12, warmer.limit)
}

func TestEventsWarmupPassesPayload(t *testing.T) {
	warmer := &fakeWarmer{}
	task, err := NewEventsWarmTask(EventsWarmPayload{Pages: 5, Limit: 24})
	require.NoError(t, err)
	require.NoError(t, newJob(warmer).Handle(context.Background(), task))
	assert.Equal(t, 5, warmer.pages)
	assert.Equal(t, 24, warmer.limit)
}

func TestEventsWarmupFailures(t *testing.T) {
	boom := errors.New("api down")
	task, _ := NewEventsWarmTask(EventsWarmPayload{Pages: 1})
	assert.ErrorIs(t, newJob(&fakeWarmer{err: boom}).Handle(context.Background(), task), boom)

	bad := asynq.NewTask(TaskEventsWarm, []byte("{"))
	assert.ErrorIs(t, newJob(&fakeWarmer{}).Handle(context.Background(), bad), asynq.SkipRetry)

	assert.Error(t, newJob(nil).Handle(context.Background(), task))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealth(t *testing.T) {
	serve := func(inspector QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return res
	}

	res := serve(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Active: 1}})
	require.Equal(t, http.StatusOK, res.Code)
	var health queueHealth
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &health))
	assert.Equal(t, queueHealth{Queue: "default", Pending: 4, Active: 1}, health)

	res = serve(fakeInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)

	res = serve(nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestStatusRouterExposesJobMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	tracker := jobmetrics.NewMetrics(metrics.Registerer()).Track(TaskEventsWarm)
	require.NoError(t, tracker.End(nil))
	router := NewStatusRouter(metrics.Handler(), fakeInspector{info: &asynq.QueueInfo{Queue: "default"}}, nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `tickethub_jobs_total{job="events:warm",status="success"} 1`)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, res.Code)
}
