package postgres

import (
	"context"
	"errors"
	"fmt"

	"swapkit/domain"

	"gorm.io/gorm"
)

type DecisionRepository struct {
	DB *gorm.DB
}

func NewDecisionRepository(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{
		DB: db,
	}
}

func (r *DecisionRepository) Save(ctx context.Context, decision *domain.SwapDecision) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := decision.EncodePayload(); err != nil {
		return fmt.Errorf("failed to encode decision payload: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}

	return nil
}

func (r *DecisionRepository) FindByID(ctx context.Context, id string) (domain.SwapDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.SwapDecision{}, fmt.Errorf("context error: %w", err)
	}

	var decision domain.SwapDecision

	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SwapDecision{}, errors.New("decision not found")
		}
		return domain.SwapDecision{}, fmt.Errorf("failed to find decision: %w", err)
	}

	if err := decision.DecodePayload(); err != nil {
		return domain.SwapDecision{}, fmt.Errorf("failed to decode decision payload: %w", err)
	}

	return decision, nil
}

func (r *DecisionRepository) FindRecent(ctx context.Context, limit int) ([]domain.SwapDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var decisions []domain.SwapDecision
	err := r.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&decisions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent decisions: %w", err)
	}

	for i := range decisions {
		if err := decisions[i].DecodePayload(); err != nil {
			return nil, fmt.Errorf("failed to decode decision payload: %w", err)
		}
	}

	return decisions, nil
}
