package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/iyhunko/product-catalog/internal/sqs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, msg sqs.ProductMessage) *model.Event {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	event := &model.Event{EventType: model.EventTypeProductCreated, EventData: data}
	event.InitMeta()
	return event
}

func TestOutboxWorker_ProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks events processed", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		msg := sqs.ProductMessage{Action: sqs.ActionCreated, ProductID: uuid.NewString(), Name: "Ring A", Slug: "ring-a", BasePrice: decimal.NewFromInt(500)}
		event := newEvent(t, msg)

		events.On("ListPending", ctx, 10).Return([]*model.Event{event}, nil)
		publisher.On("PublishProductMessage", ctx, mock.MatchedBy(func(got sqs.ProductMessage) bool {
			return got.ProductID == msg.ProductID && got.Slug == "ring-a" && got.BasePrice.Equal(msg.BasePrice)
		})).Return(nil)
		events.On("UpdateStatus", ctx, event.ID, model.EventStatusProcessed).Return(nil)

		worker := service.NewOutboxWorker(events, publisher, time.Second, 10)

		// when
		published := worker.ProcessPending(ctx)

		// then
		assert.Equal(t, 1, published)
		events.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("publish failure marks the event failed and continues", func(t *testing.T) {
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		failing := newEvent(t, sqs.ProductMessage{ProductID: "a"})
		ok := newEvent(t, sqs.ProductMessage{ProductID: "b"})

		events.On("ListPending", ctx, 10).Return([]*model.Event{failing, ok}, nil)
		publisher.On("PublishProductMessage", ctx, mock.MatchedBy(func(m sqs.ProductMessage) bool { return m.ProductID == "a" })).
			Return(errors.New("queue unavailable"))
		publisher.On("PublishProductMessage", ctx, mock.MatchedBy(func(m sqs.ProductMessage) bool { return m.ProductID == "b" })).
			Return(nil)
		events.On("UpdateStatus", ctx, failing.ID, model.EventStatusFailed).Return(nil)
		events.On("UpdateStatus", ctx, ok.ID, model.EventStatusProcessed).Return(nil)

		published := service.NewOutboxWorker(events, publisher, time.Second, 10).ProcessPending(ctx)

		assert.Equal(t, 1, published)
		events.AssertExpectations(t)
	})

	t.Run("undecodable payload is marked failed without publishing", func(t *testing.T) {
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		event := &model.Event{EventType: model.EventTypeProductDeleted, EventData: json.RawMessage(`not json`)}
		event.InitMeta()

		events.On("ListPending", ctx, 10).Return([]*model.Event{event}, nil)
		events.On("UpdateStatus", ctx, event.ID, model.EventStatusFailed).Return(nil)

		published := service.NewOutboxWorker(events, publisher, time.Second, 10).ProcessPending(ctx)

		assert.Zero(t, published)
		publisher.AssertNotCalled(t, "PublishProductMessage", mock.Anything, mock.Anything)
	})

	t.Run("list failure publishes nothing", func(t *testing.T) {
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		events.On("ListPending", ctx, 10).Return(nil, errors.New("db down"))

		published := service.NewOutboxWorker(events, publisher, time.Second, 10).ProcessPending(ctx)

		assert.Zero(t, published)
		events.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("status update failure does not count as published", func(t *testing.T) {
		events := new(MockEventRepository)
		publisher := new(MockPublisher)
		event := newEvent(t, sqs.ProductMessage{ProductID: "a"})
		events.On("ListPending", ctx, 10).Return([]*model.Event{event}, nil)
		publisher.On("PublishProductMessage", ctx, mock.Anything).Return(nil)
		events.On("UpdateStatus", ctx, event.ID, model.EventStatusProcessed).Return(errors.New("db down"))

		published := service.NewOutboxWorker(events, publisher, time.Second, 10).ProcessPending(ctx)

		assert.Zero(t, published)
	})
}

func TestOutboxWorker_StartStop(t *testing.T) {
	t.Run("stop ends the loop", func(t *testing.T) {
		// given
		events := new(MockEventRepository)
		events.On("ListPending", mock.Anything, 5).Return([]*model.Event{}, nil).Maybe()
		worker := service.NewOutboxWorker(events, new(MockPublisher), 10*time.Millisecond, 5)

		done := make(chan struct{})
		go func() {
			worker.Start(context.Background())
			close(done)
		}()

		// when
		time.Sleep(30 * time.Millisecond)
		worker.Stop()
		worker.Stop()

		// then
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
	})

	t.Run("context cancellation ends the loop", func(t *testing.T) {
		events := new(MockEventRepository)
		events.On("ListPending", mock.Anything, 5).Return([]*model.Event{}, nil).Maybe()
		worker := service.NewOutboxWorker(events, new(MockPublisher), 10*time.Millisecond, 5)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			worker.Start(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
	})
}
