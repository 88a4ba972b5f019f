package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

func TestWorkerTalliesEvents(t *testing.T) {
	t.Parallel()

	events := make(chan model.DeliveryRecord, 3)
	msg := "550"
	events <- model.DeliveryRecord{RunID: "r1", Recipient: "a@x.com", Status: model.DeliveryStatusSent}
	events <- model.DeliveryRecord{RunID: "r1", Recipient: "b@x.com", Status: model.DeliveryStatusFailed, Error: &msg}
	events <- model.DeliveryRecord{RunID: "r2", Recipient: "c@x.com", Status: model.DeliveryStatusSent}
	close(events)

	w := service.NewWorker(events, logger.Discard())
	w.Start(context.Background())

	assert.Equal(t, map[string]int{"sent": 2, "failed": 1}, w.Totals())
	assert.Equal(t, map[string]int{"sent": 1, "failed": 1}, w.RunTotals("r1"))
	assert.Empty(t, w.RunTotals("unknown"))
}

func TestWorkerStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := service.NewWorker(make(chan model.DeliveryRecord), logger.Discard())
	w.Start(ctx)
	assert.Empty(t, w.Totals())
}

func TestSubscribeDeliveriesFeedsWorker(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemoryQueue(logger.Discard())
	events := make(chan model.DeliveryRecord, 4)
	require.NoError(t, service.SubscribeDeliveries(ctx, q, events, logger.Discard()))

	w := service.NewWorker(events, logger.Discard())
	go w.Start(ctx)

	require.NoError(t, q.Publish(queue.TopicDeliveryEvents, model.DeliveryRecord{RunID: "r1", Recipient: "a@x.com", Status: model.DeliveryStatusSent}))

	assert.Eventually(t, func() bool {
		return w.RunTotals("r1")["sent"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeDeliveriesDropsMalformedEvents(t *testing.T) {
	t.Parallel()

	q := queue.NewInMemoryQueue(logger.Discard())
	events := make(chan model.DeliveryRecord, 1)
	require.NoError(t, service.SubscribeDeliveries(context.Background(), q, events, logger.Discard()))

	// a JSON string, not a record
	require.NoError(t, q.Publish(queue.TopicDeliveryEvents, "not a record"))

	assert.Never(t, func() bool { return len(events) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}
