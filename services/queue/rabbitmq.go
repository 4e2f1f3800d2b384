package queuesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/prediction"
)

// reconnection backoff schedule
var reconnectDelays = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second}

type (
	// RabbitQueue carries prediction tasks over a durable RabbitMQ queue.
	// Messages are published persistent and consumed with manual acks, one
	// unacked message in flight per consumer.
	RabbitQueue struct {
		conf   core.BrokerConfig
		logger core.Logger

		mu   sync.Mutex
		conn *amqp.Connection
		ch   *amqp.Channel
	}
)

var _ prediction.Queue = (*RabbitQueue)(nil)

func NewRabbitQueue(conf *core.Config, logger core.Logger) (*RabbitQueue, error) {
	q := &RabbitQueue{
		conf:   conf.Broker,
		logger: logger,
	}
	if err := q.connect(); err != nil {
		return nil, err
	}
	return q, nil
}

// connect (re)establishes the connection, channel and queue. Callers hold mu.
func (q *RabbitQueue) connect() error {
	conn, err := amqp.Dial(q.conf.URL)
	if err != nil {
		return errors.Wrap(err, "dialing broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "opening channel")
	}
	if _, err = ch.QueueDeclare(
		q.conf.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "declaring queue")
	}
	q.conn = conn
	q.ch = ch
	return nil
}

func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

// Publish enqueues a persistent task message. A dropped connection gets one
// reconnect attempt before the error is handed back to the caller.
func (q *RabbitQueue) Publish(ctx context.Context, task prediction.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "encoding task")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	publish := func() error {
		return q.ch.Publish(
			"",           // default exchange
			q.conf.Queue, // routing key
			false,        // mandatory
			false,        // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    task.ID,
				Body:         body,
			},
		)
	}
	if err = publish(); err != nil {
		q.logger.Warn(fmt.Sprintf("queue publish failed, reconnecting: %v", err))
		if err = q.connect(); err != nil {
			return err
		}
		err = publish()
	}
	return errors.Wrap(err, "publishing task")
}

// Consume delivers queued task payloads to fn, one at a time, until ctx is
// done. Each message is acked after fn returns, whatever the outcome: fn owns
// recording failures, and a poison payload must not be redelivered forever.
// Dropped connections are retried on a growing backoff.
func (q *RabbitQueue) Consume(ctx context.Context, fn func(ctx context.Context, body []byte)) error {
	var attempt int
	for {
		if err := q.consume(ctx, fn); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay := reconnectDelays[attempt]
			if attempt < len(reconnectDelays)-1 {
				attempt++
			}
			q.logger.Warn(fmt.Sprintf("queue consume failed, retrying in %s: %v", delay, err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			q.mu.Lock()
			if err = q.connect(); err != nil {
				q.mu.Unlock()
				q.logger.Warn(fmt.Sprintf("queue reconnect failed: %v", err))
				continue
			}
			q.mu.Unlock()
			continue
		}
		return nil
	}
}

func (q *RabbitQueue) consume(ctx context.Context, fn func(ctx context.Context, body []byte)) error {
	q.mu.Lock()
	ch := q.ch
	q.mu.Unlock()

	if err := ch.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "setting prefetch")
	}
	deliveries, err := ch.Consume(
		q.conf.Queue,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "starting consumer")
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			return errors.Wrap(amqpErr, "channel closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			fn(ctx, d.Body)
			if err := d.Ack(false); err != nil {
				return errors.Wrap(err, "acking message")
			}
		}
	}
}
