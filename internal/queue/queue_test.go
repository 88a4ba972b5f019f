package queue

import (
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadflow-backend/internal/logger"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

func TestInMemoryQueueDeliversJSON(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	got := make(chan model.DeliveryRecord, 1)
	require.NoError(t, q.Subscribe(TopicDeliveryEvents, func(body []byte) error {
		var rec model.DeliveryRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return err
		}
		got <- rec
		return nil
	}))

	require.NoError(t, q.Publish(TopicDeliveryEvents, model.DeliveryRecord{Recipient: "a@x.com", Status: "sent"}))

	select {
	case rec := <-got:
		assert.Equal(t, "a@x.com", rec.Recipient)
		assert.Equal(t, "sent", rec.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestInMemoryQueueRetries(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	q.Backoff = time.Millisecond

	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Subscribe("t", func([]byte) error {
		if calls.Add(1) < 3 {
			return errors.New("not yet")
		}
		close(done)
		return nil
	}))
	require.NoError(t, q.Publish("t", "payload"))

	select {
	case <-done:
		assert.Equal(t, int32(3), calls.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("handler never succeeded")
	}
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	q.Backoff = time.Millisecond
	q.MaxRetries = 2

	var calls atomic.Int32
	require.NoError(t, q.Subscribe("t", func([]byte) error {
		calls.Add(1)
		return errors.New("always")
	}))
	require.NoError(t, q.Publish("t", 1))

	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	assert.NoError(t, q.Publish("nobody", 1))
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	err := q.Publish("t", make(chan int))
	assert.ErrorIs(t, err, ErrEncodePayload)
}

func TestProgressTrackerKeepsFurthest(t *testing.T) {
	t.Parallel()

	tr := NewProgressTracker()
	tr.Record(model.Progress{RunID: "r", Processed: 2, Total: 3})
	tr.Record(model.Progress{RunID: "r", Processed: 1, Total: 3})

	p, ok := tr.Get("r")
	require.True(t, ok)
	assert.Equal(t, 2, p.Processed)

	tr.Record(model.Progress{RunID: "r", Processed: 3, Total: 3, Fraction: 1, Done: true})
	tr.Record(model.Progress{RunID: "r", Processed: 3, Total: 3, Fraction: 1})
	p, _ = tr.Get("r")
	assert.True(t, p.Done)

	_, ok = tr.Get("other")
	assert.False(t, ok)
}

func TestProgressTrackerAttach(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(logger.Discard())
	tr := NewProgressTracker()
	require.NoError(t, tr.Attach(q))

	require.NoError(t, q.Publish(TopicCampaignProgress, model.Progress{RunID: "r1", Processed: 1, Total: 2, Fraction: 0.5}))

	assert.Eventually(t, func() bool {
		p, ok := tr.Get("r1")
		return ok && p.Processed == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAMQPQueueRoundTrip(t *testing.T) {
	url := os.Getenv("AMQP_TEST_URL")
	if url == "" {
		t.Skip("AMQP_TEST_URL not set")
	}

	q, err := DialAMQP(url, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	topic := "leadflow_test_" + time.Now().Format("150405.000000")
	got := make(chan []byte, 1)
	require.NoError(t, q.Subscribe(topic, func(body []byte) error {
		got <- body
		return nil
	}))
	require.NoError(t, q.Publish(topic, map[string]int{"n": 1}))

	select {
	case body := <-got:
		assert.JSONEq(t, `{"n":1}`, string(body))
	case <-time.After(5 * time.Second):
		t.Fatal("message not consumed")
	}
}

func TestProgressTrackerOnDoneFiresOnce(t *testing.T) {
	t.Parallel()

	var done []string
	tr := NewProgressTracker()
	tr.OnDone = func(p model.Progress) { done = append(done, p.RunID) }

	tr.Record(model.Progress{RunID: "r", Processed: 1, Total: 2})
	tr.Record(model.Progress{RunID: "r", Processed: 2, Total: 2, Done: true})
	tr.Record(model.Progress{RunID: "r", Processed: 2, Total: 2, Done: true})

	assert.Equal(t, []string{"r"}, done)
}
