package postgres

import (
	"context"
	"fmt"

	"swapkit/domain"

	"gorm.io/gorm"
)

type FeedbackRepository struct {
	DB *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{
		DB: db,
	}
}

func (r *FeedbackRepository) Save(ctx context.Context, signal *domain.FeedbackSignal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(signal).Error; err != nil {
		return fmt.Errorf("failed to save feedback signal: %w", err)
	}

	return nil
}

func (r *FeedbackRepository) FindByDecisionIDs(ctx context.Context, decisionIDs []string) ([]domain.FeedbackSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if len(decisionIDs) == 0 {
		return []domain.FeedbackSignal{}, nil
	}

	var signals []domain.FeedbackSignal
	err := r.DB.WithContext(ctx).
		Where("decision_id IN ?", decisionIDs).
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find feedback signals: %w", err)
	}

	return signals, nil
}

func (r *FeedbackRepository) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	type row struct {
		Outcome string
		Count   int64
	}

	var rows []row
	err := r.DB.WithContext(ctx).
		Model(&domain.FeedbackSignal{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Count
	}

	return counts, nil
}
