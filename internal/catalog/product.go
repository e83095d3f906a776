package catalog

import (
	"errors"
	"fmt"
	"math"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

func (s Status) Toggled() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

type Product struct {
	ID        string  `json:"id" csv:"id"`
	Title     string  `json:"title" csv:"title"`
	SKU       string  `json:"sku" csv:"sku"`
	Price     float64 `json:"price" csv:"price"`
	Status    Status  `json:"status" csv:"status"`
	CreatedAt string  `json:"createdAt" csv:"created_at"`
}

// NewProduct is what a caller supplies to add a product; id and createdAt are
// assigned by the store.
type NewProduct struct {
	Title  string  `json:"title"`
	SKU    string  `json:"sku"`
	Price  float64 `json:"price"`
	Status Status  `json:"status"`
}

// ProductPatch lists the fields an update replaces. Nil fields are left alone.
type ProductPatch struct {
	Title  *string  `json:"title,omitempty" mapstructure:"title"`
	SKU    *string  `json:"sku,omitempty" mapstructure:"sku"`
	Price  *float64 `json:"price,omitempty" mapstructure:"price" validate:"omitempty,gte=0"`
	Status *Status  `json:"status,omitempty" mapstructure:"status" validate:"omitempty,oneof=active inactive"`
}

// Apply merges the patch into p. A status outside the two known values is
// ignored so the collection never holds a product in neither state.
func (p Product) Apply(patch ProductPatch) Product {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Status != nil && patch.Status.Valid() {
		p.Status = *patch.Status
	}
	return p
}

type Metrics struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

func ComputeMetrics(products []Product) Metrics {
	m := Metrics{Total: len(products)}
	for _, p := range products {
		switch p.Status {
		case StatusActive:
			m.Active++
		case StatusInactive:
			m.Inactive++
		}
	}
	return m
}

var ErrMalformedCollection = errors.New("malformed product collection")

// ValidateCollection checks rehydrated data; anything failing it is treated
// as if nothing had been stored.
func ValidateCollection(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: entry %d has no id", ErrMalformedCollection, i)
		case !p.Status.Valid():
			return fmt.Errorf("%w: entry %d has status %q", ErrMalformedCollection, i, p.Status)
		case math.IsNaN(p.Price) || p.Price < 0:
			return fmt.Errorf("%w: entry %d has price %v", ErrMalformedCollection, i, p.Price)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrMalformedCollection, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
