package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ProductManager/internal/events"
)

const DefaultStorageKey = "sx:products"

// Persister keeps the whole collection under one key.
// storage.Adapter[Product] is the production implementation.
type Persister interface {
	Load(ctx context.Context, key string) []Product
	Save(ctx context.Context, key string, products []Product)
}

type Deps struct {
	Storage    Persister
	StorageKey string
	Events     events.Broadcaster
	IDs        IDGenerator
	Now        func() time.Time
	Log        *zap.Logger
}

type Store struct {
	mu    sync.RWMutex
	state State

	storage Persister
	key     string
	events  events.Broadcaster
	ids     IDGenerator
	now     func() time.Time
	log     *zap.Logger

	// outbox holds events in commit order until one goroutine delivers them.
	outMu    sync.Mutex
	outbox   []events.Event
	draining bool
}

type nopBroadcaster struct{}

func (nopBroadcaster) Emit(string, any) {}

// NewStore rehydrates the collection from deps.Storage. Missing deps fall
// back to an in-process default.
func NewStore(ctx context.Context, deps Deps) *Store {
	s := &Store{
		storage: deps.Storage,
		key:     deps.StorageKey,
		events:  deps.Events,
		ids:     deps.IDs,
		now:     deps.Now,
		log:     deps.Log,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.events == nil {
		s.events = nopBroadcaster{}
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	s.state = State{Products: []Product{}}
	if s.storage != nil {
		s.state.Products = s.storage.Load(ctx, s.key)
	}
	s.log.Info("product store ready", zap.String("key", s.key), zap.Int("products", len(s.state.Products)))
	return s
}

// commit applies cmd and persists the result. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, cmd Command) Metrics {
	s.state = Reduce(s.state, cmd)
	if s.storage != nil {
		s.storage.Save(ctx, s.key, s.state.Products)
	}
	return ComputeMetrics(s.state.Products)
}

// enqueue queues an event behind those of earlier commits. Callers hold s.mu.
func (s *Store) enqueue(name string, detail any) {
	s.outMu.Lock()
	s.outbox = append(s.outbox, events.Event{Name: name, Detail: detail})
	s.outMu.Unlock()
}

// flush delivers queued events in commit order. Only one goroutine delivers
// at a time; a caller that finds delivery in progress leaves its events to
// that goroutine. A listener that mutates the store therefore sees its own
// event delivered after it returns.
func (s *Store) flush() {
	s.outMu.Lock()
	if s.draining {
		s.outMu.Unlock()
		return
	}
	s.draining = true
	s.outMu.Unlock()

	finished := false
	defer func() {
		if !finished {
			s.outMu.Lock()
			s.draining = false
			s.outMu.Unlock()
		}
	}()

	for {
		s.outMu.Lock()
		if len(s.outbox) == 0 {
			s.outbox = nil
			s.draining = false
			finished = true
			s.outMu.Unlock()
			return
		}
		ev := s.outbox[0]
		s.outbox = s.outbox[1:]
		s.outMu.Unlock()

		s.events.Emit(ev.Name, ev.Detail)
	}
}

func (s *Store) AddProduct(ctx context.Context, in NewProduct) Product {
	status := in.Status
	if !status.Valid() {
		status = StatusActive
	}

	s.mu.Lock()
	p := Product{
		ID:        s.uniqueID(),
		Title:     in.Title,
		SKU:       in.SKU,
		Price:     in.Price,
		Status:    status,
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	m := s.commit(ctx, AddCommand{Product: p})
	s.enqueue(events.ProductAdded, ProductAdded{Product: p, Metrics: m})
	s.mu.Unlock()

	s.log.Debug("product added", zap.String("id", p.ID), zap.String("sku", p.SKU), zap.Int("total", m.Total))
	s.flush()
	return p
}

const maxIDAttempts = 8

// uniqueID draws an id that is not in use. Callers hold s.mu.
func (s *Store) uniqueID() string {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.NewID()
		if id != "" && indexOf(s.state.Products, id) < 0 {
			return id
		}
	}
	s.log.Warn("id generator keeps colliding, falling back to uuid")
	for {
		if id := (UUIDGenerator{}).NewID(); indexOf(s.state.Products, id) < 0 {
			return id
		}
	}
}

// UpdateProduct merges patch into the product with the given id. An unknown
// id changes nothing, but the update is still persisted and announced.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, bool) {
	s.mu.Lock()
	m := s.commit(ctx, UpdateCommand{ID: id, Patch: patch})
	p, ok := s.lookup(id)
	s.enqueue(events.ProductUpdated, ProductUpdated{ProductID: id, Updates: patch, Metrics: m})
	s.mu.Unlock()

	s.log.Debug("product updated", zap.String("id", id), zap.Bool("found", ok))
	s.flush()
	return p, ok
}

func (s *Store) RemoveProduct(ctx context.Context, id string) (Product, bool) {
	s.mu.Lock()
	p, ok := s.lookup(id)
	m := s.commit(ctx, RemoveCommand{ID: id})
	ev := ProductRemoved{ProductID: id, Metrics: m}
	if ok {
		ev.Product = &p
	}
	s.enqueue(events.ProductRemoved, ev)
	s.mu.Unlock()

	s.log.Debug("product removed", zap.String("id", id), zap.Bool("found", ok))
	s.flush()
	return p, ok
}

// ToggleProductStatus flips active and inactive. An unknown id is a silent
// no-op: nothing is persisted and nothing is announced.
func (s *Store) ToggleProductStatus(ctx context.Context, id string) (Product, bool) {
	s.mu.Lock()
	before, ok := s.lookup(id)
	if !ok {
		s.mu.Unlock()
		return Product{}, false
	}
	m := s.commit(ctx, ToggleCommand{ID: id})
	after, _ := s.lookup(id)
	s.enqueue(events.ProductStatusToggled, ProductStatusToggled{
		ProductID: id,
		OldStatus: before.Status,
		NewStatus: after.Status,
		Metrics:   m,
	})
	s.mu.Unlock()

	s.log.Debug("product status toggled", zap.String("id", id),
		zap.String("from", string(before.Status)), zap.String("to", string(after.Status)))
	s.flush()
	return after, true
}

func (s *Store) lookup(id string) (Product, bool) {
	i := indexOf(s.state.Products, id)
	if i < 0 {
		return Product{}, false
	}
	return s.state.Products[i], true
}

// Products returns a copy of the collection in insertion order.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.state.Products))
	copy(out, s.state.Products)
	return out
}

func (s *Store) Get(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

func (s *Store) GetMetrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeMetrics(s.state.Products)
}

// Ping reports whether the backing storage is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.storage.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// ServeMetricsRequests answers every request-metrics event with a
// metrics-response carrying the current metrics. The answer goes back on sub
// when sub can emit, otherwise on the store's broadcaster.
func (s *Store) ServeMetricsRequests(sub events.Subscriber) (stop func()) {
	reply := s.events
	if b, ok := sub.(events.Broadcaster); ok {
		reply = b
	}
	if _, nop := reply.(nopBroadcaster); nop {
		s.log.Warn("metrics requests will not be answered: no broadcaster")
	}

	return sub.Subscribe(events.RequestMetrics, func(events.Event) {
		m := s.GetMetrics()
		s.log.Debug("metrics requested", zap.Int("total", m.Total))
		reply.Emit(events.MetricsResponse, MetricsResponse{Metrics: m})
	})
}
