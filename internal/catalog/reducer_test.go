package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() State {
	return State{Products: []Product{
		{ID: "a", Title: "Keyboard", SKU: "K-1", Price: 49.9, Status: StatusActive},
		{ID: "b", Title: "Mouse", SKU: "M-1", Price: 19.9, Status: StatusInactive},
	}}
}

func TestReduce_AddAppends(t *testing.T) {
	prev := seed()
	next := Reduce(prev, AddCommand{Product: Product{ID: "c", Status: StatusActive}})

	require.Len(t, next.Products, 3)
	assert.Equal(t, "c", next.Products[2].ID)
	assert.Len(t, prev.Products, 2)
}

func TestReduce_ToggleIsInvolution(t *testing.T) {
	s := seed()
	once := Reduce(s, ToggleCommand{ID: "a"})
	twice := Reduce(once, ToggleCommand{ID: "a"})

	assert.Equal(t, StatusInactive, once.Products[0].Status)
	assert.Equal(t, s.Products, twice.Products)
}

func TestReduce_DoesNotWriteIntoPreviousState(t *testing.T) {
	prev := seed()
	title := "Trackball"

	_ = Reduce(prev, ToggleCommand{ID: "a"})
	_ = Reduce(prev, UpdateCommand{ID: "b", Patch: ProductPatch{Title: &title}})
	_ = Reduce(prev, RemoveCommand{ID: "a"})

	assert.Equal(t, seed().Products, prev.Products)
}

func TestReduce_UnknownIDLeavesStateUnchanged(t *testing.T) {
	prev := seed()
	price := 1.0

	for _, cmd := range []Command{
		ToggleCommand{ID: "zzz"},
		UpdateCommand{ID: "zzz", Patch: ProductPatch{Price: &price}},
		RemoveCommand{ID: "zzz"},
	} {
		next := Reduce(prev, cmd)
		require.Len(t, next.Products, len(prev.Products))
		assert.Same(t, &prev.Products[0], &next.Products[0], "%T", cmd)
	}
}

func TestReduce_UpdateMergesOnlyGivenFields(t *testing.T) {
	price := 0.0
	next := Reduce(seed(), UpdateCommand{ID: "a", Patch: ProductPatch{Price: &price}})

	p := next.Products[0]
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, "Keyboard", p.Title)
	assert.Equal(t, "K-1", p.SKU)
	assert.Equal(t, StatusActive, p.Status)
}

func TestReduce_UpdateIgnoresUnknownStatus(t *testing.T) {
	bogus := Status("archived")
	next := Reduce(seed(), UpdateCommand{ID: "a", Patch: ProductPatch{Status: &bogus}})
	assert.Equal(t, StatusActive, next.Products[0].Status)
}

func TestReduce_RemoveKeepsOrder(t *testing.T) {
	s := seed()
	s = Reduce(s, AddCommand{Product: Product{ID: "c", Status: StatusActive}})
	next := Reduce(s, RemoveCommand{ID: "b"})

	require.Len(t, next.Products, 2)
	assert.Equal(t, "a", next.Products[0].ID)
	assert.Equal(t, "c", next.Products[1].ID)
}

func TestComputeMetrics(t *testing.T) {
	assert.Equal(t, Metrics{}, ComputeMetrics(nil))
	assert.Equal(t, Metrics{Total: 2, Active: 1, Inactive: 1}, ComputeMetrics(seed().Products))
}

func TestValidateCollection(t *testing.T) {
	assert.NoError(t, ValidateCollection(seed().Products))
	assert.NoError(t, ValidateCollection([]Product{}))

	cases := map[string][]Product{
		"missing id":   {{Status: StatusActive}},
		"bad status":   {{ID: "a", Status: "archived"}},
		"negative":     {{ID: "a", Status: StatusActive, Price: -1}},
		"duplicate id": {{ID: "a", Status: StatusActive}, {ID: "a", Status: StatusInactive}},
	}
	for name, products := range cases {
		assert.ErrorIs(t, ValidateCollection(products), ErrMalformedCollection, name)
	}
}
