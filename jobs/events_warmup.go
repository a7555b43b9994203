package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tickethub/tickethub-web/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer loads listing pages into the cache.
type Warmer interface {
	Warm(ctx context.Context, pages, limit int) (int, error)
}

// EventsWarmupJob pre-populates the events listing cache.
type EventsWarmupJob struct {
	Events  Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewEventsWarmupJob wires dependencies for the warmup handler.
func NewEventsWarmupJob(events Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *EventsWarmupJob {
	return &EventsWarmupJob{Events: events, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes TaskEventsWarm tasks.
func (j *EventsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Events == nil {
		return errors.New("events warmup: handler not configured")
	}
	var payload EventsWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Pages <= 0 {
		payload.Pages = 3
	}
	if payload.Limit <= 0 {
		payload.Limit = 12
	}

	tracker := j.metrics().Track(TaskEventsWarm)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger := j.logger().With(slog.Int("pages", payload.Pages), slog.Int("limit", payload.Limit))
	start := time.Now()
	warmed, err := j.Events.Warm(ctx, payload.Pages, payload.Limit)
	j.metrics().AddWarmedPages(warmed)
	if err != nil {
		logger.Error("warm events listing", slog.Int("warmed", warmed), slog.Any("error", err))
		return err
	}
	logger.Info("completed events warmup", slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *EventsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEventsWarm))
	}
	return slog.Default().With(slog.String("job", TaskEventsWarm))
}

func (j *EventsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
