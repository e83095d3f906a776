package catalog

// Event payloads. Every mutation payload carries the metrics of the
// collection after the mutation.

type ProductAdded struct {
	Product Product `json:"product"`
	Metrics Metrics `json:"metrics"`
}

type ProductUpdated struct {
	ProductID string       `json:"productId"`
	Updates   ProductPatch `json:"updates"`
	Metrics   Metrics      `json:"metrics"`
}

type ProductRemoved struct {
	ProductID string `json:"productId"`
	// Product is nil when the id was not in the collection.
	Product *Product `json:"product,omitempty"`
	Metrics Metrics  `json:"metrics"`
}

type ProductStatusToggled struct {
	ProductID string  `json:"productId"`
	OldStatus Status  `json:"oldStatus"`
	NewStatus Status  `json:"newStatus"`
	Metrics   Metrics `json:"metrics"`
}

type MetricsResponse struct {
	Metrics Metrics `json:"metrics"`
}

func (e ProductAdded) EventMetrics() Metrics         { return e.Metrics }
func (e ProductUpdated) EventMetrics() Metrics       { return e.Metrics }
func (e ProductRemoved) EventMetrics() Metrics       { return e.Metrics }
func (e ProductStatusToggled) EventMetrics() Metrics { return e.Metrics }
func (e MetricsResponse) EventMetrics() Metrics      { return e.Metrics }
