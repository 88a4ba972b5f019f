// internal/queue/queue.go
package queue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	TopicDeliveryEvents   = "delivery_events"
	TopicCampaignProgress = "campaign_progress"
)

var (
	ErrEncodePayload = errors.New("failed to encode payload")
	ErrPublish       = errors.New("failed to publish message")
	ErrSubscribe     = errors.New("failed to subscribe")
)

// Handler receives the JSON body of one message. Returning an error asks for
// redelivery.
type Handler func(body []byte) error

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue fans messages out to in-process subscribers with retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	log        *slog.Logger
	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue(log *slog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message body with retry info
type JobPayload struct {
	Topic      string
	Body       []byte
	RetryCount int
	MaxRetries int
}

// Publish hands the payload to every subscriber of topic. Messages for a
// topic nobody listens to are dropped.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrEncodePayload, err)
	}

	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		q.log.Debug("no subscribers, message dropped", slog.String("topic", topic))
		return nil
	}

	for _, handler := range handlers {
		go q.processJob(handler, JobPayload{Topic: topic, Body: body, MaxRetries: q.MaxRetries})
	}
	return nil
}

func (q *InMemoryQueue) processJob(handler Handler, job JobPayload) {
	for {
		err := handler(job.Body)
		if err == nil {
			return
		}

		job.RetryCount++
		q.log.Warn("job failed",
			slog.String("topic", job.Topic),
			slog.Int("attempt", job.RetryCount),
			slog.Int("max_retries", job.MaxRetries),
			slog.Any("err", err),
		)

		if job.RetryCount > job.MaxRetries {
			q.log.Error("job permanently failed", slog.String("topic", job.Topic), slog.Int("attempts", job.RetryCount))
			return
		}

		// linear backoff
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
