package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AzielCF/az-prospect/domains/routing"
)

type ProviderUsageModel struct {
	Provider  string    `gorm:"primaryKey;column:provider"`
	Day       string    `gorm:"primaryKey;column:day"`
	Count     int64     `gorm:"column:count;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ProviderUsageModel) TableName() string {
	return "provider_usage"
}

// GormUsageStore implements routing.UsageStore on the provider_usage table.
type GormUsageStore struct {
	db *gorm.DB
}

func NewGormUsageStore(db *gorm.DB) *GormUsageStore {
	return &GormUsageStore{db: db}
}

func (r *GormUsageStore) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ProviderUsageModel{})
}

func (r *GormUsageStore) Get(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	var m ProviderUsageModel
	err := r.db.WithContext(ctx).First(&m, "provider = ? AND day = ?", string(provider), day).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage for %s on %s: %w", provider, day, err)
	}
	return m.Count, nil
}

// Increment creates today's row or bumps it with a single atomic upsert.
func (r *GormUsageStore) Increment(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("provider_usage.count + 1"),
				"updated_at": now,
			}),
		}).Create(&ProviderUsageModel{
			Provider:  string(provider),
			Day:       day,
			Count:     1,
			UpdatedAt: now,
		}).Error
		if err != nil {
			return err
		}

		var m ProviderUsageModel
		if err := tx.First(&m, "provider = ? AND day = ?", string(provider), day).Error; err != nil {
			return err
		}
		count = m.Count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage for %s on %s: %w", provider, day, err)
	}
	return count, nil
}

// History returns the stored records of provider, newest day first.
func (r *GormUsageStore) History(ctx context.Context, provider routing.Provider, limit int) ([]routing.UsageRecord, error) {
	var rows []ProviderUsageModel
	q := r.db.WithContext(ctx).Where("provider = ?", string(provider)).Order("day DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage for %s: %w", provider, err)
	}
	out := make([]routing.UsageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, routing.UsageRecord{Provider: provider, Day: row.Day, Count: row.Count})
	}
	return out, nil
}
