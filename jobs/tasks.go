package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/portcullis-iam/portcullis/internal/events"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeEventRepublish retries a domain event whose first publication failed.
	TaskTypeEventRepublish = "authz:event:republish"

	// republishMaxRetry bounds the redelivery attempts; after that the event
	// is dropped to the log and consumers rely on their next full refresh.
	republishMaxRetry = 8
)

// NewEventRepublishTask constructs an Asynq task carrying the failed event.
func NewEventRepublishTask(ev events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEventRepublish, data,
		asynq.MaxRetry(republishMaxRetry),
		asynq.Queue(QueueDefault),
		asynq.Retention(24*time.Hour),
	), nil
}

// Enqueuer schedules failed events for redelivery through Asynq.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an Asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Enqueue submits a republish task for the event.
func (e *Enqueuer) Enqueue(ctx context.Context, ev events.Event) error {
	task, err := NewEventRepublishTask(ev)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

var _ events.Republisher = (*Enqueuer)(nil)

// NewEventRepublishHandler processes TaskTypeEventRepublish tasks. Returning
// an error lets Asynq retry with its exponential backoff until the retry
// budget is exhausted.
func NewEventRepublishHandler(publisher events.Publisher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var ev events.Event
		if err := json.Unmarshal(t.Payload(), &ev); err != nil {
			return asynq.SkipRetry
		}
		if err := publisher.Publish(ctx, ev); err != nil {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				logger.Error("event dropped after retry budget",
					slog.String("event_id", ev.ID),
					slog.String("tenant", ev.Tenant),
					slog.String("selector", ev.Selector),
					slog.Any("error", err),
				)
			}
			return err
		}
		logger.Info("event republished",
			slog.String("event_id", ev.ID),
			slog.String("tenant", ev.Tenant),
			slog.String("selector", ev.Selector),
		)
		return nil
	}
}
