package swap

import (
	"fmt"
	"math"

	"swapkit/domain"
)

const (
	dropReasonCategory    = "category_mismatch"
	dropReasonPriceBand   = "price_band"
	dropReasonCompliance  = "compliance_attribute"
	dropReasonUnavailable = "unavailable"
	dropReasonUnknown     = "unknown_product"
)

// GuardrailValidator applies the hard constraints a candidate must satisfy
// regardless of confidence: category compatibility, price band, compliance
// attribute equality, availability. Strictness comes from the weight snapshot
// so the learner can tighten or loosen the price band over time.
type GuardrailValidator struct {
	cfg Config
}

func NewGuardrailValidator(cfg Config) *GuardrailValidator {
	return &GuardrailValidator{cfg: cfg}
}

// Filter drops ineligible candidates, preserving input order for the rest.
// Drop reasons are returned for the decision trace.
func (v *GuardrailValidator) Filter(
	source domain.Product,
	products map[uint64]domain.Product,
	candidates []domain.Candidate,
	weights domain.WeightTable,
	maxPriceDeltaPct float64,
) ([]domain.Candidate, []domain.GuardrailDrop) {

	kept := make([]domain.Candidate, 0, len(candidates))
	drops := make([]domain.GuardrailDrop, 0)

	bandPct := v.priceBandPct(weights, maxPriceDeltaPct)

	for _, c := range candidates {
		p, ok := products[c.ProductID]
		if !ok {
			drops = append(drops, drop(c, dropReasonUnknown))
			continue
		}

		if reason := v.check(source, p, bandPct); reason != "" {
			drops = append(drops, drop(c, reason))
			continue
		}

		kept = append(kept, c)
	}

	for _, d := range drops {
		SwapGuardrailDropsTotal.WithLabelValues(d.Reason).Inc()
	}

	return kept, drops
}

// check runs the ordered guardrail checks, returning the first failing
// reason or "" when the candidate is eligible.
func (v *GuardrailValidator) check(source, candidate domain.Product, bandPct float64) string {
	if candidate.Category != source.Category {
		return dropReasonCategory
	}

	if source.Price > 0 {
		delta := math.Abs(candidate.Price-source.Price) / source.Price
		if delta > bandPct {
			return dropReasonPriceBand
		}
	}

	for _, key := range v.cfg.ComplianceAttributes {
		if source.Attribute(key) != candidate.Attribute(key) {
			return fmt.Sprintf("%s:%s", dropReasonCompliance, key)
		}
	}

	if !candidate.Availability {
		return dropReasonUnavailable
	}

	return ""
}

// priceBandPct derives the allowed price delta. Higher strictness narrows the
// band; a per-request override replaces the configured base.
func (v *GuardrailValidator) priceBandPct(weights domain.WeightTable, overridePct float64) float64 {
	base := v.cfg.PriceBandPct
	if overridePct > 0 {
		base = overridePct
	}

	strictness := weights.Strictness
	if strictness <= 0 {
		strictness = 1.0
	}

	return base / strictness
}

func drop(c domain.Candidate, reason string) domain.GuardrailDrop {
	return domain.GuardrailDrop{
		ProductID: c.ProductID,
		Strategy:  c.Strategy,
		Reason:    reason,
	}
}
