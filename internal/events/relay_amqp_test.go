package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     []string
	published  []amqp.Publishing
	publishErr error
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 4)}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name+"/"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.deliveries)
	}
	return nil
}

func (f *fakeChannel) sent() []amqp.Publishing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]amqp.Publishing(nil), f.published...)
}

type fakeAcker struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _, _ bool) error { return a.Reject(tag, false) }

func (a *fakeAcker) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected = append(a.rejected, tag)
	return nil
}

func (a *fakeAcker) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.rejected)
}

func startRelay(t *testing.T, bus *Bus) (*AMQPRelay, *fakeChannel) {
	t.Helper()

	ch := newFakeChannel()
	r, err := newAMQPRelay(ch, nil, AMQPConfig{}, bus, nil)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Close() })
	return r, ch
}

func TestAMQPRelay_DeclaresTopology(t *testing.T) {
	_, ch := startRelay(t, NewBus(nil))

	assert.Equal(t, []string{DefaultExchange + "/fanout"}, ch.exchanges)
	assert.Equal(t, []string{DefaultRequestQueue}, ch.queues)
}

func TestAMQPRelay_ForwardsNamespacedEvents(t *testing.T) {
	bus := NewBus(nil)
	_, ch := startRelay(t, bus)

	bus.Emit(ProductAdded, map[string]any{"sku": "W-1"})
	bus.Emit(RequestMetrics, nil)

	sent := ch.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, ProductAdded, sent[0].Type)
	assert.Equal(t, "application/json", sent[0].ContentType)

	var ev struct {
		Name   string         `json:"name"`
		Detail map[string]any `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(sent[0].Body, &ev))
	assert.Equal(t, ProductAdded, ev.Name)
	assert.Equal(t, "W-1", ev.Detail["sku"])
}

func TestAMQPRelay_PublishFailureDoesNotReachEmitter(t *testing.T) {
	bus := NewBus(nil)
	_, ch := startRelay(t, bus)
	ch.publishErr = errors.New("channel closed")

	assert.NotPanics(t, func() { bus.Emit(ProductRemoved, nil) })
	assert.Empty(t, ch.sent())
}

func TestAMQPRelay_TurnsDashboardMessagesIntoBusEvents(t *testing.T) {
	bus := NewBus(nil)

	requests := make(chan struct{}, 4)
	bus.Subscribe(RequestMetrics, func(Event) { requests <- struct{}{} })

	_, ch := startRelay(t, bus)
	acker := &fakeAcker{}

	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Type: RequestMetrics}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte(`{"name":"` + RequestMetrics + `"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte(`not json`)}

	for i := 0; i < 2; i++ {
		select {
		case <-requests:
		case <-time.After(2 * time.Second):
			t.Fatalf("request %d not re-emitted", i+1)
		}
	}

	require.Eventually(t, func() bool {
		acked, rejected := acker.counts()
		return acked == 2 && rejected == 1
	}, 2*time.Second, 10*time.Millisecond)
}
