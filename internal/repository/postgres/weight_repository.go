package postgres

import (
	"context"
	"errors"
	"fmt"

	"swapkit/domain"

	"gorm.io/gorm"
)

type WeightRepository struct {
	DB *gorm.DB
}

func NewWeightRepository(db *gorm.DB) *WeightRepository {
	return &WeightRepository{
		DB: db,
	}
}

// SaveVersion appends a new weight table version. Versions are never updated
// in place; decisions reference them by number.
func (r *WeightRepository) SaveVersion(ctx context.Context, table domain.WeightTable) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&table).Error; err != nil {
		return fmt.Errorf("failed to save weight table version: %w", err)
	}

	return nil
}

func (r *WeightRepository) LatestVersion(ctx context.Context) (domain.WeightTable, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.WeightTable{}, false, fmt.Errorf("context error: %w", err)
	}

	var table domain.WeightTable

	err := r.DB.WithContext(ctx).Order("version desc").First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.WeightTable{}, false, nil
		}
		return domain.WeightTable{}, false, fmt.Errorf("failed to find latest weight table: %w", err)
	}

	return table, true, nil
}
