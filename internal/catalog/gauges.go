package catalog

import (
	"github.com/prometheus/client_golang/prometheus"

	"ProductManager/internal/events"
)

// Gauges mirrors the catalog metrics into prometheus by listening to the bus.
type Gauges struct {
	products *prometheus.GaugeVec
	events   *prometheus.CounterVec
}

func NewGauges(reg prometheus.Registerer) *Gauges {
	g := &Gauges{
		products: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "product_catalog_products",
			Help: "Products in the catalog by status.",
		}, []string{"status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_catalog_events_total",
			Help: "Events emitted on the product bus.",
		}, []string{"event"}),
	}
	reg.MustRegister(g.products, g.events)
	return g
}

func (g *Gauges) Observe(m Metrics) {
	g.products.WithLabelValues(string(StatusActive)).Set(float64(m.Active))
	g.products.WithLabelValues(string(StatusInactive)).Set(float64(m.Inactive))
}

// Listen subscribes to every event on bus and returns the unsubscribe func.
func (g *Gauges) Listen(bus interface {
	SubscribeAll(events.Listener) func()
}) func() {
	return bus.SubscribeAll(func(ev events.Event) {
		g.events.WithLabelValues(ev.Name).Inc()
		if c, ok := ev.Detail.(interface{ EventMetrics() Metrics }); ok {
			g.Observe(c.EventMetrics())
		}
	})
}
