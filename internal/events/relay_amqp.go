package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	DefaultExchange     = "sx-product-manager"
	DefaultRequestQueue = "sx-dashboard.requests"
)

type AMQPConfig struct {
	URL          string
	Exchange     string
	RequestQueue string
}

// amqpChannel is the subset of *amqp.Channel the relay needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPRelay mirrors product events onto a fanout exchange and turns messages
// on the dashboard request queue into RequestMetrics events on the bus.
type AMQPRelay struct {
	bus  *Bus
	log  *zap.Logger
	conn io.Closer

	mu       sync.Mutex // serialises publishes on ch
	ch       amqpChannel
	exchange string
	queue    string

	unsubscribe func()
	done        chan struct{}
}

func DialAMQP(cfg AMQPConfig, bus *Bus, log *zap.Logger) (*AMQPRelay, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r, err := newAMQPRelay(ch, conn, cfg, bus, log)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return r, nil
}

func newAMQPRelay(ch amqpChannel, conn io.Closer, cfg AMQPConfig, bus *Bus, log *zap.Logger) (*AMQPRelay, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.RequestQueue == "" {
		cfg.RequestQueue = DefaultRequestQueue
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.RequestQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.RequestQueue, err)
	}

	return &AMQPRelay{
		bus:      bus,
		log:      log,
		conn:     conn,
		ch:       ch,
		exchange: cfg.Exchange,
		queue:    cfg.RequestQueue,
		done:     make(chan struct{}),
	}, nil
}

// Start subscribes to the bus and begins consuming dashboard requests.
func (r *AMQPRelay) Start() error {
	deliveries, err := r.ch.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	r.unsubscribe = r.bus.SubscribeAll(r.forward)
	go r.consume(deliveries)

	r.log.Info("amqp relay started", zap.String("exchange", r.exchange), zap.String("queue", r.queue))
	return nil
}

func (r *AMQPRelay) forward(ev Event) {
	if !strings.HasPrefix(ev.Name, Namespace) {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("amqp relay: marshal event", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	r.mu.Lock()
	err = r.ch.Publish(r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        ev.Name,
		Body:        body,
		Timestamp:   ev.At,
	})
	r.mu.Unlock()

	if err != nil {
		r.log.Warn("amqp relay: publish failed", zap.String("event", ev.Name), zap.Error(err))
	}
}

func (r *AMQPRelay) consume(deliveries <-chan amqp.Delivery) {
	defer close(r.done)

	for d := range deliveries {
		if !isMetricsRequest(d) {
			r.log.Warn("amqp relay: unexpected message",
				zap.Uint64("tag", d.DeliveryTag),
				zap.String("type", d.Type),
			)
			if err := d.Reject(false); err != nil {
				r.log.Warn("amqp relay: reject failed", zap.Error(err))
			}
			continue
		}

		r.bus.Emit(RequestMetrics, nil)

		if err := d.Ack(false); err != nil {
			r.log.Warn("amqp relay: ack failed", zap.Uint64("tag", d.DeliveryTag), zap.Error(err))
		}
	}
}

func isMetricsRequest(d amqp.Delivery) bool {
	if d.Type == RequestMetrics {
		return true
	}

	var msg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return false
	}
	return msg.Name == RequestMetrics
}

// Close stops forwarding and waits briefly for the consumer to drain.
func (r *AMQPRelay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}

	var errs []error
	if err := r.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	if r.unsubscribe != nil {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("amqp relay close: %v", errs)
	}
	return nil
}
