package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var slotsBucket = []byte("slots")

// BoltSlot keeps slots in a single bbolt file; each Set is one transaction.
// bbolt transactions cannot be interrupted, so ctx is only checked before one
// starts.
type BoltSlot struct {
	db *bolt.DB
}

func OpenBoltSlot(path string) (*BoltSlot, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt file %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create slots bucket")
	}
	return &BoltSlot{db: db}, nil
}

func (s *BoltSlot) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(slotsBucket) == nil {
			return errors.New("slots bucket missing")
		}
		return nil
	})
}

func (s *BoltSlot) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(slotsBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		// raw is only valid inside the transaction
		v, ok = string(raw), true
		return nil
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "bolt get %s", key)
	}
	return v, ok, nil
}

func (s *BoltSlot) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotsBucket).Put([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "bolt put %s", key)
}

func (s *BoltSlot) Close() error {
	return s.db.Close()
}
