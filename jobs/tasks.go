package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskEventsWarm reloads the first pages of the public events listing
	// into the Redis cache.
	TaskEventsWarm = "events:warm"
)

// EventsWarmPayload describes how much of the listing to warm.
type EventsWarmPayload struct {
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// NewEventsWarmTask constructs an Asynq task.
func NewEventsWarmTask(payload EventsWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventsWarm, data), nil
}
