package swap

import (
	"context"
	"fmt"
	"sort"

	"swapkit/domain"
	"swapkit/pkg/logger"
)

// ---- Repository interfaces ----

type SwapRuleRepository interface {
	FindActiveBySourceProduct(ctx context.Context, sourceProductID uint64) ([]domain.SwapRule, error)
}

type CatalogRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.Product, error)
	FindByCategory(ctx context.Context, category string, excludeID uint64) ([]domain.Product, error)
}

// RuleEngine is the deterministic strategy: explicit substitution mappings
// first, then exact category/attribute matches over the catalog. An empty
// result is a normal outcome, not an error.
type RuleEngine struct {
	ruleRepo    SwapRuleRepository
	catalogRepo CatalogRepository
	cfg         Config
}

func NewRuleEngine(ruleRepo SwapRuleRepository, catalogRepo CatalogRepository, cfg Config) *RuleEngine {
	return &RuleEngine{
		ruleRepo:    ruleRepo,
		catalogRepo: catalogRepo,
		cfg:         cfg,
	}
}

// FindSwaps returns rule candidates for the source product. Identical input
// always yields identical, identically ordered output.
func (e *RuleEngine) FindSwaps(ctx context.Context, source domain.Product, pool []domain.Product) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	rules, err := e.ruleRepo.FindActiveBySourceProduct(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("load swap rules: %w", err)
	}

	if len(rules) > 0 {
		return e.explicitCandidates(ctx, source, rules), nil
	}

	return e.categoryCandidates(source, pool), nil
}

// explicitCandidates resolves substitution rows to candidates, skipping
// targets that are missing or out of stock. Rules arrive ordered by priority
// desc then id asc from the repository.
func (e *RuleEngine) explicitCandidates(ctx context.Context, source domain.Product, rules []domain.SwapRule) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(rules))
	seen := make(map[uint64]struct{}, len(rules))

	for _, rule := range rules {
		if _, ok := seen[rule.TargetProductID]; ok {
			continue
		}

		target, err := e.catalogRepo.FindByID(ctx, rule.TargetProductID)
		if err != nil {
			logger.Warn("swap rule target missing",
				"rule_id", rule.ID,
				"target_product_id", rule.TargetProductID,
				"error", err,
			)
			continue
		}
		if !target.Availability {
			continue
		}

		seen[rule.TargetProductID] = struct{}{}
		out = append(out, domain.Candidate{
			ProductID:  target.ID,
			SKU:        target.SKU,
			Strategy:   domain.StrategyRule,
			RawScore:   e.cfg.ExplicitConfidence,
			Confidence: e.cfg.ExplicitConfidence,
			Reason:     fmt.Sprintf("explicit rule: %s", rule.Name),
		})
	}

	return out
}

// categoryCandidates filters the candidate pool by availability and, when
// configured, exact equality of the listed attribute keys.
func (e *RuleEngine) categoryCandidates(source domain.Product, pool []domain.Product) []domain.Candidate {
	matched := make([]domain.Product, 0, len(pool))

	for _, p := range pool {
		if p.ID == source.ID || !p.Availability || p.Category != source.Category {
			continue
		}
		if !attributesMatch(source, p, e.cfg.RuleMatchAttributes) {
			continue
		}
		matched = append(matched, p)
	}

	// product-id order keeps the output deterministic
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	limit := e.cfg.RuleCandidateLimit
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.Candidate, 0, len(matched))
	for _, p := range matched {
		out = append(out, domain.Candidate{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Strategy:   domain.StrategyRule,
			RawScore:   e.cfg.CategoryConfidence,
			Confidence: e.cfg.CategoryConfidence,
			Reason:     "category match",
		})
	}

	return out
}

func attributesMatch(source, candidate domain.Product, keys []string) bool {
	for _, key := range keys {
		if source.Attribute(key) != candidate.Attribute(key) {
			return false
		}
	}
	return true
}
