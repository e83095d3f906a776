// Package events is the outward notification channel of the product manager.
//
// A Bus delivers every emitted Event synchronously to the listeners registered
// at the time of the Emit call, in registration order. The bus is owned by the
// composition root and handed to whoever needs to emit or listen.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	Namespace = "sx-product-manager:"

	ProductAdded         = Namespace + "product-added"
	ProductUpdated       = Namespace + "product-updated"
	ProductRemoved       = Namespace + "product-removed"
	ProductStatusToggled = Namespace + "product-status-toggled"
	MetricsResponse      = Namespace + "metrics-response"

	// RequestMetrics is emitted by an external dashboard, not by this service.
	RequestMetrics = "sx-dashboard:request-metrics"
)

type Event struct {
	Name   string    `json:"name"`
	Detail any       `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

type Listener func(Event)

type Broadcaster interface {
	Emit(name string, detail any)
}

type Subscriber interface {
	Subscribe(name string, l Listener) (unsubscribe func())
}

type subscription struct {
	id   uint64
	name string // empty matches every event
	fn   Listener
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription

	log *zap.Logger
	now func() time.Time
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, now: time.Now}
}

func (b *Bus) Subscribe(name string, l Listener) func() {
	return b.add(name, l)
}

func (b *Bus) SubscribeAll(l Listener) func() {
	return b.add("", l)
}

func (b *Bus) add(name string, l Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit runs listeners outside the lock, so a listener may emit or
// (un)subscribe without deadlocking. A panicking listener is logged and
// the remaining listeners still run.
func (b *Bus) Emit(name string, detail any) {
	ev := Event{Name: name, Detail: detail, At: b.now().UTC()}

	b.mu.RLock()
	targets := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == "" || s.name == name {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event listener panicked",
				zap.String("event", ev.Name),
				zap.Any("panic", r),
			)
		}
	}()
	fn(ev)
}

// Listeners reports how many listeners would receive an event called name.
func (b *Bus) Listeners(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, s := range b.subs {
		if s.name == "" || s.name == name {
			n++
		}
	}
	return n
}
