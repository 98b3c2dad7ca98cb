package postgres

import (
	"context"
	"errors"
	"fmt"

	"swapkit/domain"

	"gorm.io/gorm"
)

type SwapRuleRepository struct {
	DB *gorm.DB
}

func NewSwapRuleRepository(db *gorm.DB) *SwapRuleRepository {
	return &SwapRuleRepository{
		DB: db,
	}
}

func (r *SwapRuleRepository) Create(ctx context.Context, rule *domain.SwapRule) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create swap rule: %w", err)
	}

	return nil
}

func (r *SwapRuleRepository) FindByID(ctx context.Context, id uint64) (domain.SwapRule, error) {
	if err := ctx.Err(); err != nil {
		return domain.SwapRule{}, fmt.Errorf("context error: %w", err)
	}

	var rule domain.SwapRule

	err := r.DB.WithContext(ctx).First(&rule, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SwapRule{}, errors.New("swap rule not found")
		}
		return domain.SwapRule{}, fmt.Errorf("failed to find swap rule: %w", err)
	}

	return rule, nil
}

func (r *SwapRuleRepository) FindAll(ctx context.Context) ([]domain.SwapRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rules []domain.SwapRule
	err := r.DB.WithContext(ctx).Order("priority desc, id asc").Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find swap rules: %w", err)
	}

	return rules, nil
}

// FindActiveBySourceProduct returns active rules for a source product in
// deterministic order: priority desc, then id asc.
func (r *SwapRuleRepository) FindActiveBySourceProduct(ctx context.Context, sourceProductID uint64) ([]domain.SwapRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rules []domain.SwapRule
	err := r.DB.WithContext(ctx).
		Where("source_product_id = ? AND active = true", sourceProductID).
		Order("priority desc, id asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find swap rules for product: %w", err)
	}

	return rules, nil
}

func (r *SwapRuleRepository) Update(ctx context.Context, rule *domain.SwapRule) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":              rule.Name,
		"description":       rule.Description,
		"source_product_id": rule.SourceProductID,
		"target_product_id": rule.TargetProductID,
		"priority":          rule.Priority,
		"active":            rule.Active,
	}

	result := r.DB.WithContext(ctx).Model(&domain.SwapRule{}).Where("id = ?", rule.ID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update swap rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("swap rule not found or already deleted")
	}

	return nil
}

func (r *SwapRuleRepository) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.SwapRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete swap rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("swap rule not found or already deleted")
	}

	return nil
}
