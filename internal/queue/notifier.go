package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/store"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns domain events into background tasks.
type Notifier struct {
	Client Enqueuer
}

var _ events.Notifier = Notifier{}

// Notify enqueues the task matching the event topic. Unknown topics are ignored.
func (n Notifier) Notify(ctx context.Context, ev store.DomainEvent) error {
	if n.Client == nil {
		return errors.New("queue: client not configured")
	}
	var (
		task *asynq.Task
		err  error
	)
	switch ev.Topic {
	case events.TopicBillCreated, events.TopicPaymentRecorded, events.TopicCustomerDeleted:
		task, err = NewReportInvalidateTask(ReportInvalidatePayload{Reason: ev.Topic, RefID: ev.AggregateID})
	case events.TopicItemLowStock:
		var p events.ItemLowStock
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("queue: decode %s: %w", ev.Topic, err)
		}
		task, err = NewStockLowTask(StockLowPayload(p))
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := n.Client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("queue: enqueue %s: %w", task.Type(), err)
	}
	Enqueued(task.Type())
	return nil
}
