package storage

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter stores a list of T as JSON text in a Slot. Load and Save never fail
// from the caller's point of view: problems are logged and the caller sees an
// empty list or an unchanged slot.
type Adapter[T any] struct {
	Slot Slot
	Log  *zap.Logger

	// Validate rejects decoded content that does not have the expected shape.
	Validate func([]T) error
}

func NewAdapter[T any](slot Slot, log *zap.Logger, validate func([]T) error) *Adapter[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter[T]{Slot: slot, Log: log, Validate: validate}
}

func (a *Adapter[T]) Load(ctx context.Context, key string) []T {
	raw, ok, err := a.Slot.Get(ctx, key)
	if err != nil {
		a.Log.Error("storage: load failed", zap.String("key", key), zap.Error(err))
		return []T{}
	}
	if !ok || raw == "" {
		return []T{}
	}

	var out []T
	if err := codec.UnmarshalFromString(raw, &out); err != nil {
		a.Log.Error("storage: stored value is not valid", zap.String("key", key), zap.Error(err))
		return []T{}
	}
	if out == nil {
		return []T{}
	}

	if a.Validate != nil {
		if err := a.Validate(out); err != nil {
			a.Log.Error("storage: stored value has unexpected shape", zap.String("key", key), zap.Error(err))
			return []T{}
		}
	}
	return out
}

func (a *Adapter[T]) Save(ctx context.Context, key string, items []T) {
	if items == nil {
		items = []T{}
	}

	raw, err := codec.MarshalToString(items)
	if err != nil {
		a.Log.Error("storage: encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := a.Slot.Set(ctx, key, raw); err != nil {
		a.Log.Error("storage: save failed", zap.String("key", key), zap.Int("items", len(items)), zap.Error(err))
	}
}

func (a *Adapter[T]) Ping(ctx context.Context) error {
	return a.Slot.Ping(ctx)
}
