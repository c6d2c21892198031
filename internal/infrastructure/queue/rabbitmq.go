package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tubevault/tubevault/internal/domain/repository"
)

// amqpChannel abstracts the AMQP channel operations used by the publisher,
// allowing tests to substitute a mock.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpConnection abstracts the AMQP connection.
type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
}

// RabbitMQPublisher emits archive-completed events to a durable queue so
// downstream consumers (indexers, notifiers) can react to new blobs.
type RabbitMQPublisher struct {
	conn      amqpConnection
	channel   amqpChannel
	queueName string
}

// NewRabbitMQPublisher connects to RabbitMQ and declares the event queue.
func NewRabbitMQPublisher(url, queueName string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &RabbitMQPublisher{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
	}

	if err := p.declareQueue(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// newPublisherWithChannel creates a publisher with an injected channel.
// Used in tests.
func newPublisherWithChannel(channel amqpChannel, queueName string) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{
		channel:   channel,
		queueName: queueName,
	}
	if err := p.declareQueue(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) declareQueue() error {
	_, err := p.channel.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queueName, err)
	}
	return nil
}

// PublishArchiveEvent publishes an archive-completed event as persistent JSON.
func (p *RabbitMQPublisher) PublishArchiveEvent(ctx context.Context, event repository.ArchiveEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal archive event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish archive event: %w", err)
	}

	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}

// Compile-time verification that RabbitMQPublisher implements EventPublisher.
var _ repository.EventPublisher = (*RabbitMQPublisher)(nil)
