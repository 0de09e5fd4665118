package realtime

import (
	"art-marketplace/internal/biddingerrors"
	"art-marketplace/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the subset of *amqp.Channel the broker uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
}

type dialedConnection struct {
	*amqp.Connection
}

func (c dialedConnection) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return dialedConnection{conn}, nil
}

// AMQPBroker relays events between instances through a topic exchange.
// Published events come back through the consumer and are delivered to the local hub.
type AMQPBroker struct {
	url      string
	exchange string
	hub      *Hub
	dial     func(url string) (amqpConnection, error)
	backoff  time.Duration

	mu    sync.Mutex
	pubCh amqpChannel
}

// NewAMQPBroker creates a broker for the given exchange that feeds hub
func NewAMQPBroker(url, exchange string, hub *Hub) *AMQPBroker {
	return &AMQPBroker{
		url:      url,
		exchange: exchange,
		hub:      hub,
		dial:     dialAMQP,
		backoff:  time.Second,
	}
}

// RoutingKey returns "auction.<id>.<type>"
func RoutingKey(event Event) string {
	return fmt.Sprintf("auction.%s.%s", event.AuctionID, event.Type)
}

// Publish sends event to the exchange. When the broker is unreachable the event is
// still delivered to local subscribers and a transient error is returned.
func (b *AMQPBroker) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	b.mu.Lock()
	ch := b.pubCh
	b.mu.Unlock()

	if ch != nil {
		err = ch.PublishWithContext(ctx, b.exchange, RoutingKey(event), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			MessageId:    event.ID,
			Timestamp:    event.At,
			Body:         body,
		})
		if err == nil {
			return nil
		}
	} else {
		err = errors.New("not connected")
	}

	_ = b.hub.Publish(ctx, event)
	return fmt.Errorf("%w: publish %s to exchange %s: %s", biddingerrors.ErrTransient, event.ID, b.exchange, err.Error())
}

// Run keeps a connection open, consuming events into the hub until ctx is done.
// Lost connections are re-established after a pause.
func (b *AMQPBroker) Run(ctx context.Context) error {
	for {
		err := b.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		utils.Warn("AMQP session ended, reconnecting", map[string]any{
			"exchange": b.exchange,
			"error":    fmt.Sprint(err),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.backoff):
		}
	}
}

func (b *AMQPBroker) session(ctx context.Context) error {
	conn, err := b.dial(b.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() {
		b.mu.Lock()
		b.pubCh = nil
		b.mu.Unlock()
		conn.Close()
	}()

	pubCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	subCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}

	if err := subCh.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}
	q, err := subCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := subCh.QueueBind(q.Name, "auction.#", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := subCh.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", q.Name, err)
	}

	closed := subCh.NotifyClose(make(chan *amqp.Error, 1))

	b.mu.Lock()
	b.pubCh = pubCh
	b.mu.Unlock()

	utils.Info("AMQP consumer started", map[string]any{"exchange": b.exchange, "queue": q.Name})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return errors.New("channel closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery stream closed")
			}
			b.deliver(ctx, d)
		}
	}
}

func (b *AMQPBroker) deliver(ctx context.Context, d amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		utils.Warn("Dropping malformed AMQP event", map[string]any{
			"routing_key": d.RoutingKey,
			"error":       err.Error(),
		})
		return
	}
	if event.AuctionID == "" {
		// routing key carries the auction id when the body omits it
		parts := strings.Split(d.RoutingKey, ".")
		if len(parts) == 3 {
			event.AuctionID = parts[1]
		}
	}
	_ = b.hub.Publish(ctx, event)
}
