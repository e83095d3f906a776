package storage

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotRecord is the gorm row behind GormSlot.
type SlotRecord struct {
	Key   string `gorm:"column:slot_key;primaryKey;type:varchar(255)"`
	Value string `gorm:"column:slot_value;type:text;not null"`
}

func (SlotRecord) TableName() string { return "kv_slots" }

type GormSlot struct {
	db *gorm.DB
}

func NewGormSlot(db *gorm.DB) (*GormSlot, error) {
	if err := db.AutoMigrate(&SlotRecord{}); err != nil {
		return nil, errors.Wrap(err, "auto-migrate kv_slots")
	}
	return &GormSlot{db: db}, nil
}

func (s *GormSlot) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return withTimeout(ctx, pingTimeout, sqlDB.PingContext)
}

func (s *GormSlot) Get(ctx context.Context, key string) (string, bool, error) {
	var rec SlotRecord
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.WithContext(ctx).First(&rec, "slot_key = ?", key).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get slot %s", key)
	}
	return rec.Value, true, nil
}

func (s *GormSlot) Set(ctx context.Context, key, value string) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"slot_value"}),
		}).Create(&SlotRecord{Key: key, Value: value}).Error
	})
	return errors.Wrapf(err, "save slot %s", key)
}
