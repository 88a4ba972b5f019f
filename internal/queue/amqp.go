// internal/queue/amqp.go
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// AMQPQueue publishes JSON messages to durable RabbitMQ queues named after
// the topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger

	mu       sync.Mutex
	declared map[string]bool
}

func DialAMQP(url string, log *slog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, log: log, declared: map[string]bool{}}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrEncodePayload, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return errors.Join(ErrPublish, err)
	}
	err = q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

// Subscribe consumes topic with manual acks. A failed message is requeued
// once and dropped if it fails again.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return errors.Join(ErrSubscribe, err)
	}

	go func() {
		for d := range msgs {
			q.handle(topic, d, handler)
		}
		q.log.Info("consumer stopped", slog.String("topic", topic))
	}()
	return nil
}

func (q *AMQPQueue) handle(topic string, d amqp.Delivery, handler Handler) {
	if err := handler(d.Body); err != nil {
		q.log.Warn("message handling failed",
			slog.String("topic", topic),
			slog.Bool("redelivered", d.Redelivered),
			slog.Any("err", err),
		)
		if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
			q.log.Error("nack failed", slog.Any("err", nackErr))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		q.log.Error("ack failed", slog.Any("err", err))
	}
}

func (q *AMQPQueue) Close() error {
	return errors.Join(q.ch.Close(), q.conn.Close())
}

var _ Queue = (*AMQPQueue)(nil)
