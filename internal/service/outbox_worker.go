package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// EventPublisher forwards a product notification to the message broker.
type EventPublisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// OutboxWorker polls the events table and publishes pending events.
type OutboxWorker struct {
	events    repository.EventRepository
	publisher EventPublisher
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(events repository.EventRepository, publisher EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		stopChan:  make(chan struct{}),
	}
}

// Start processes the outbox every interval until ctx is cancelled or Stop is called.
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval), slog.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// Stop stops the outbox worker. It is safe to call more than once.
func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// ProcessPending publishes one batch of pending events and returns how many were published.
// Events that cannot be published are marked failed and not retried.
func (w *OutboxWorker) ProcessPending(ctx context.Context) int {
	events, err := w.events.ListPending(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to retrieve pending events", slog.Any("err", err))
		return 0
	}

	if len(events) == 0 {
		return 0
	}

	slog.Info("Processing pending events", slog.Int("count", len(events)))

	published := 0
	for _, event := range events {
		status := model.EventStatusProcessed
		if err := w.publish(ctx, event); err != nil {
			slog.Error("Failed to process event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			status = model.EventStatusFailed
		}

		if err := w.events.UpdateStatus(ctx, event.ID, status); err != nil {
			slog.Error("Failed to update event status",
				slog.String("event_id", event.ID.String()),
				slog.String("status", string(status)),
				slog.Any("err", err))
			continue
		}
		metrics.OutboxEvents.WithLabelValues(string(status)).Inc()
		if status == model.EventStatusProcessed {
			published++
		}
	}
	return published
}

func (w *OutboxWorker) publish(ctx context.Context, event *model.Event) error {
	var msg sqs.ProductMessage
	if err := json.Unmarshal(event.EventData, &msg); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}

	if err := w.publisher.PublishProductMessage(ctx, msg); err != nil {
		return err
	}

	return nil
}
