package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type item struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

type failingSlot struct {
	*MemSlot
	getErr error
	setErr error
}

func (s *failingSlot) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.MemSlot.Get(ctx, key)
}

func (s *failingSlot) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemSlot.Set(ctx, key, value)
}

func requireIDs(items []item) error {
	for _, it := range items {
		if it.ID == "" {
			return errors.New("missing id")
		}
	}
	return nil
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter[item](NewMemSlot(), nil, requireIDs)

	in := []item{{ID: "a", Price: 9.99}, {ID: "b", Price: 0}}
	a.Save(ctx, "k", in)

	assert.Equal(t, in, a.Load(ctx, "k"))
}

func TestAdapter_AbsentKeyLoadsEmpty(t *testing.T) {
	a := NewAdapter[item](NewMemSlot(), nil, nil)

	got := a.Load(context.Background(), "missing")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAdapter_MalformedContentLoadsEmpty(t *testing.T) {
	ctx := context.Background()

	cases := map[string]string{
		"not json":     "{not json",
		"object":       `{"id":"a"}`,
		"wrong types":  `[{"id":1,"price":"x"}]`,
		"null":         "null",
		"empty string": "",
		"failed shape": `[{"price":3}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			slot := NewMemSlot()
			require.NoError(t, slot.Set(ctx, "k", raw))

			a := NewAdapter[item](slot, zap.NewNop(), requireIDs)
			got := a.Load(ctx, "k")

			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestAdapter_ReadErrorIsLoggedNotRaised(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	slot := &failingSlot{MemSlot: NewMemSlot(), getErr: errors.New("connection refused")}
	a := NewAdapter[item](slot, zap.New(core), nil)

	assert.Empty(t, a.Load(context.Background(), "k"))
	assert.Equal(t, 1, logs.FilterMessage("storage: load failed").Len())
}

func TestAdapter_FailedSaveKeepsPriorValue(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)
	slot := &failingSlot{MemSlot: NewMemSlot()}
	a := NewAdapter[item](slot, zap.New(core), nil)

	a.Save(ctx, "k", []item{{ID: "kept"}})

	slot.setErr = errors.New("quota exceeded")
	a.Save(ctx, "k", []item{{ID: "lost"}})

	assert.Equal(t, []item{{ID: "kept"}}, a.Load(ctx, "k"))
	assert.Equal(t, 1, logs.FilterMessage("storage: save failed").Len())
}

func TestAdapter_NilSavesEmptyArray(t *testing.T) {
	ctx := context.Background()
	slot := NewMemSlot()
	a := NewAdapter[item](slot, nil, nil)

	a.Save(ctx, "k", nil)

	raw, ok, err := slot.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
}
