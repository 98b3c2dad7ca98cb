package swap

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"swapkit/domain"
	"swapkit/pkg/logger"

	"github.com/google/uuid"
)

// Request is one swap request. K and the price-delta override are optional.
type Request struct {
	SourceProductID  uint64
	K                int
	MaxPriceDeltaPct float64
	Context          string
}

// SwapService is the decision arbiter. A request moves through
// RULE_PHASE ∥ SIMILARITY_PHASE → (LLM_PHASE)? → GUARDRAIL_PHASE → DECIDED;
// a single strategy failing moves the pipeline forward without it, and only
// total failure yields an (explicitly reported) empty decision.
type SwapService struct {
	catalogRepo  CatalogRepository
	decisionRepo DecisionRepository
	rules        *RuleEngine
	matcher      *SimilarityMatcher
	llm          *LLMOrchestrator
	guardrails   *GuardrailValidator
	weights      *WeightStore
	cfg          Config
}

func NewSwapService(
	catalogRepo CatalogRepository,
	decisionRepo DecisionRepository,
	rules *RuleEngine,
	matcher *SimilarityMatcher,
	llm *LLMOrchestrator,
	guardrails *GuardrailValidator,
	weights *WeightStore,
	cfg Config,
) *SwapService {
	return &SwapService{
		catalogRepo:  catalogRepo,
		decisionRepo: decisionRepo,
		rules:        rules,
		matcher:      matcher,
		llm:          llm,
		guardrails:   guardrails,
		weights:      weights,
		cfg:          cfg,
	}
}

// Decide runs the full pipeline and persists the resulting decision.
// An unknown source product is a request error; strategy failures are not.
func (s *SwapService) Decide(ctx context.Context, req Request) (domain.SwapDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.SwapDecision{}, fmt.Errorf("context error: %w", err)
	}

	k := req.K
	if k <= 0 {
		k = s.cfg.DefaultK
	}
	if k > s.cfg.MaxK {
		k = s.cfg.MaxK
	}
	if req.MaxPriceDeltaPct < 0 {
		return domain.SwapDecision{}, fmt.Errorf("invalid constraints: max price delta must be non-negative")
	}

	source, err := s.catalogRepo.FindByID(ctx, req.SourceProductID)
	if err != nil {
		return domain.SwapDecision{}, err
	}

	// immutable snapshot for the whole decision
	weights := s.weights.Snapshot()

	trace := domain.DecisionTrace{}

	// candidate pool shared by similarity, the llm shortlist, and guardrails
	pool, err := s.catalogRepo.FindByCategory(ctx, source.Category, source.ID)
	if err != nil {
		logger.Warn("candidate pool unavailable",
			"trace_id", TraceIDFromContext(ctx),
			"source_product_id", source.ID,
			"error", err,
		)
		pool = nil
	}

	// RULE_PHASE and SIMILARITY_PHASE are independent and run concurrently.
	var (
		wg        sync.WaitGroup
		ruleCands []domain.Candidate
		simCands  []domain.Candidate
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		cands, err := s.rules.FindSwaps(ctx, source, pool)
		if err != nil {
			logger.Warn("rule phase failed",
				"trace_id", TraceIDFromContext(ctx),
				"source_product_id", source.ID,
				"error", err,
			)
			return
		}
		ruleCands = cands
	}()
	go func() {
		defer wg.Done()
		cands, err := s.matcher.Rank(ctx, source, pool, k)
		if err != nil {
			trace.SimilarityDegraded = true
			logger.Warn("similarity phase degraded",
				"trace_id", TraceIDFromContext(ctx),
				"source_product_id", source.ID,
				"error", err,
			)
			return
		}
		simCands = cands
	}()
	wg.Wait()

	trace.RuleCandidates = len(ruleCands)
	trace.SimilarityCandidates = len(simCands)
	SwapStrategyCandidatesTotal.WithLabelValues(domain.StrategyRule).Add(float64(len(ruleCands)))
	SwapStrategyCandidatesTotal.WithLabelValues(domain.StrategySimilarity).Add(float64(len(simCands)))

	merged := mergeCandidates(weights, ruleCands, simCands)

	// LLM gate: fallback only, because it is the expensive and slow strategy.
	// Exactly-at-threshold does not trigger.
	if bestMerged(merged) < s.cfg.ConfidenceThreshold || len(merged) < k {
		trace.LLMInvoked = true
		llmCands := s.llm.Suggest(ctx, source, pool, req.Context)
		trace.LLMCandidates = len(llmCands)
		SwapStrategyCandidatesTotal.WithLabelValues(domain.StrategyLLM).Add(float64(len(llmCands)))
		merged = mergeCandidates(weights, merged, scaled(llmCands, weights))
	}

	// GUARDRAIL_PHASE always runs on the merged, deduplicated set.
	products := s.resolveProducts(ctx, pool, merged)
	kept, drops := s.guardrails.Filter(source, products, merged, weights, req.MaxPriceDeltaPct)
	trace.Drops = drops

	sortCandidates(kept)
	if len(kept) > k {
		kept = kept[:k]
	}

	decision := domain.SwapDecision{
		ID:              uuid.NewString(),
		SourceProductID: source.ID,
		WeightVersion:   weights.Version,
		Candidates:      kept,
		Trace:           trace,
	}

	if err := s.decisionRepo.Save(ctx, &decision); err != nil {
		return domain.SwapDecision{}, fmt.Errorf("save decision: %w", err)
	}

	outcome := "filled"
	if len(kept) == 0 {
		outcome = "empty"
	}
	SwapDecisionsTotal.WithLabelValues(outcome).Inc()

	logger.Info("swap decision",
		"trace_id", TraceIDFromContext(ctx),
		"decision_id", decision.ID,
		"source_product_id", source.ID,
		"candidates", len(kept),
		"llm_invoked", trace.LLMInvoked,
		"weight_version", weights.Version,
	)

	return decision, nil
}

// Decisions returns recent decisions, newest first.
func (s *SwapService) Decisions(ctx context.Context, limit int) ([]domain.SwapDecision, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.decisionRepo.FindRecent(ctx, limit)
}

// mergeCandidates scales unscaled candidates by the strategy weight, clamps
// the merged score to [0,1], and deduplicates by product id keeping the
// highest merged confidence.
func mergeCandidates(weights domain.WeightTable, lists ...[]domain.Candidate) []domain.Candidate {
	byProduct := make(map[uint64]domain.Candidate)

	for _, list := range lists {
		for _, c := range list {
			if c.Merged == 0 && c.Confidence > 0 {
				c.Merged = clamp(c.Confidence*weights.WeightFor(c.Strategy), 0, 1)
			}

			existing, ok := byProduct[c.ProductID]
			if !ok || candidateLess(existing, c) {
				byProduct[c.ProductID] = c
			}
		}
	}

	out := make([]domain.Candidate, 0, len(byProduct))
	for _, c := range byProduct {
		out = append(out, c)
	}
	sortCandidates(out)

	return out
}

// scaled pre-applies the weight so llm candidates merge on equal footing.
func scaled(cands []domain.Candidate, weights domain.WeightTable) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		c.Merged = clamp(c.Confidence*weights.WeightFor(c.Strategy), 0, 1)
		out = append(out, c)
	}
	return out
}

// candidateLess reports whether a ranks strictly below b.
func candidateLess(a, b domain.Candidate) bool {
	if a.Merged != b.Merged {
		return a.Merged < b.Merged
	}
	pa, pb := domain.StrategyPriority(a.Strategy), domain.StrategyPriority(b.Strategy)
	if pa != pb {
		return pa > pb
	}
	return a.ProductID > b.ProductID
}

// sortCandidates orders by merged confidence desc, then strategy priority
// (rule > similarity > llm), then product id, for deterministic output.
func sortCandidates(cands []domain.Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		return candidateLess(cands[j], cands[i])
	})
}

func bestMerged(cands []domain.Candidate) float64 {
	best := 0.0
	for _, c := range cands {
		if c.Merged > best {
			best = c.Merged
		}
	}
	return best
}

// resolveProducts builds the lookup the guardrails need. Candidates outside
// the category pool (explicit rule targets) are fetched individually.
func (s *SwapService) resolveProducts(ctx context.Context, pool []domain.Product, cands []domain.Candidate) map[uint64]domain.Product {
	products := make(map[uint64]domain.Product, len(pool))
	for _, p := range pool {
		products[p.ID] = p
	}

	for _, c := range cands {
		if _, ok := products[c.ProductID]; ok {
			continue
		}
		p, err := s.catalogRepo.FindByID(ctx, c.ProductID)
		if err != nil {
			continue
		}
		products[p.ID] = p
	}

	return products
}
