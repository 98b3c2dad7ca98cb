package swap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"swapkit/domain"

	"gorm.io/datatypes"
)

func newService(
	cfg Config,
	catalog *fakeCatalog,
	rules *fakeRuleRepo,
	embedder *fakeEmbedder,
	llm *fakeLLM,
	decisions *fakeDecisionRepo,
	store *WeightStore,
) *SwapService {
	return NewSwapService(
		catalog,
		decisions,
		NewRuleEngine(rules, catalog, cfg),
		NewSimilarityMatcher(embedder, newFakeEmbCache(), cfg),
		NewLLMOrchestrator(llm, cfg),
		NewGuardrailValidator(cfg),
		store,
		cfg,
	)
}

func TestDecideExplicitRuleWins(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	target := testProduct(2, "ALT-002", "laptops", 990, true)

	catalog := newFakeCatalog(source, target)
	rules := &fakeRuleRepo{rules: []domain.SwapRule{
		{ID: 1, Name: "preferred", SourceProductID: 1, TargetProductID: 2, Priority: 10, Active: true},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(target): {1, 0},
	}}
	llm := &fakeLLM{}
	decisions := newFakeDecisionRepo()

	svc := newService(DefaultConfig(), catalog, rules, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 1})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if len(decision.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(decision.Candidates))
	}
	top := decision.Candidates[0]
	if top.ProductID != 2 || top.Strategy != domain.StrategyRule {
		t.Errorf("top = %+v, want rule candidate for product 2", top)
	}
	if top.Merged != 1.0 {
		t.Errorf("merged = %v, want 1.0", top.Merged)
	}
	if decision.Trace.LLMInvoked {
		t.Error("LLM should not run when the rule clears the gate")
	}
	if llm.callCount() != 0 {
		t.Errorf("llm calls = %d, want 0", llm.callCount())
	}
	if decision.WeightVersion != 1 {
		t.Errorf("weight version = %d, want 1", decision.WeightVersion)
	}
	if _, err := decisions.FindByID(context.Background(), decision.ID); err != nil {
		t.Errorf("decision not persisted: %v", err)
	}
}

func TestDecideSimilarityOutranksCategoryRule(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	close1 := testProduct(2, "ALT-002", "laptops", 990, true)
	close2 := testProduct(3, "ALT-003", "laptops", 980, true)

	catalog := newFakeCatalog(source, close1, close2)
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(close1): {1, 0},      // cosine 1.0 -> confidence 1.0
		embeddingText(close2): {0.8, 0.6},  // cosine 0.8 -> confidence 0.9
	}}
	llm := &fakeLLM{}
	decisions := newFakeDecisionRepo()

	svc := newService(DefaultConfig(), catalog, &fakeRuleRepo{}, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 2})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if len(decision.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(decision.Candidates))
	}
	if decision.Candidates[0].ProductID != 2 || decision.Candidates[0].Strategy != domain.StrategySimilarity {
		t.Errorf("top = %+v, want similarity candidate for product 2", decision.Candidates[0])
	}
	if decision.Candidates[1].ProductID != 3 {
		t.Errorf("second = %+v, want product 3", decision.Candidates[1])
	}
	if decision.Trace.LLMInvoked {
		t.Error("LLM should not run when similarity clears the gate")
	}
}

func TestDecideLLMFallback(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	source.Attributes = datatypes.JSONMap{"brand": "acme"}
	alt := testProduct(2, "ALT-002", "laptops", 990, true)
	alt.Attributes = datatypes.JSONMap{"brand": "zeta"}

	catalog := newFakeCatalog(source, alt)
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(alt):    {-0.8, 0.6}, // low similarity, confidence 0.1
	}}
	llm := &fakeLLM{response: `[{"sku": "ALT-002", "reasoning": "same class of machine", "confidence": 0.9}]`}
	decisions := newFakeDecisionRepo()

	cfg := DefaultConfig()
	cfg.RuleMatchAttributes = []string{"brand"} // blocks the category fallback
	svc := newService(cfg, catalog, &fakeRuleRepo{}, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 5})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if !decision.Trace.LLMInvoked {
		t.Fatal("expected LLM invocation below the confidence gate")
	}
	if llm.callCount() == 0 {
		t.Fatal("llm provider never called")
	}
	if len(decision.Candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if decision.Candidates[0].Strategy != domain.StrategyLLM {
		t.Errorf("top strategy = %q, want llm", decision.Candidates[0].Strategy)
	}
	if decision.Candidates[0].Reason != "same class of machine" {
		t.Errorf("reason = %q", decision.Candidates[0].Reason)
	}
}

func TestDecideGuardrailDropsOutOfBand(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	pricey := testProduct(2, "ALT-002", "laptops", 2000, true)

	catalog := newFakeCatalog(source, pricey)
	rules := &fakeRuleRepo{rules: []domain.SwapRule{
		{ID: 1, Name: "pricey alt", SourceProductID: 1, TargetProductID: 2, Priority: 1, Active: true},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(pricey): {1, 0},
	}}
	llm := &fakeLLM{response: `[]`}
	decisions := newFakeDecisionRepo()

	svc := newService(DefaultConfig(), catalog, rules, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 1})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if len(decision.Candidates) != 0 {
		t.Fatalf("candidates = %+v, want none", decision.Candidates)
	}
	if len(decision.Trace.Drops) == 0 {
		t.Fatal("expected guardrail drops in trace")
	}
	found := false
	for _, d := range decision.Trace.Drops {
		if d.ProductID == 2 && d.Reason == "price_band" {
			found = true
		}
	}
	if !found {
		t.Errorf("drops = %+v, want price_band drop for product 2", decision.Trace.Drops)
	}
	if _, err := decisions.FindByID(context.Background(), decision.ID); err != nil {
		t.Errorf("empty decision must still be persisted: %v", err)
	}
}

func TestDecideGateBoundaryDoesNotTriggerLLM(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	alt := testProduct(2, "ALT-002", "laptops", 990, true)

	catalog := newFakeCatalog(source, alt)
	// similarity degraded so only the category candidate (confidence 0.6) merges
	embedder := &fakeEmbedder{failText: map[string]bool{embeddingText(source): true}}
	llm := &fakeLLM{}
	decisions := newFakeDecisionRepo()

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.6 // equals the category-match merged score
	svc := newService(cfg, catalog, &fakeRuleRepo{}, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 1})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if decision.Trace.LLMInvoked || llm.callCount() != 0 {
		t.Error("exactly-at-threshold must not trigger the LLM")
	}
	if !decision.Trace.SimilarityDegraded {
		t.Error("expected similarity marked degraded")
	}
	if len(decision.Candidates) != 1 || decision.Candidates[0].Merged != 0.6 {
		t.Fatalf("candidates = %+v, want single 0.6 candidate", decision.Candidates)
	}
}

func TestDecideCountBelowKTriggersLLM(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	target := testProduct(2, "ALT-002", "laptops", 990, true)
	extra := testProduct(3, "ALT-003", "laptops", 950, true)

	catalog := newFakeCatalog(source, target, extra)
	rules := &fakeRuleRepo{rules: []domain.SwapRule{
		{ID: 1, Name: "preferred", SourceProductID: 1, TargetProductID: 2, Priority: 10, Active: true},
	}}
	// similarity degraded so the rule candidate is the only merged one
	embedder := &fakeEmbedder{failText: map[string]bool{embeddingText(source): true}}
	llm := &fakeLLM{response: `[{"sku": "ALT-003", "reasoning": "close match", "confidence": 0.6}]`}
	decisions := newFakeDecisionRepo()

	svc := newService(DefaultConfig(), catalog, rules, embedder, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 3})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if !decision.Trace.LLMInvoked || llm.callCount() != 1 {
		t.Error("fewer candidates than K must trigger the LLM even above threshold")
	}
	if len(decision.Candidates) != 2 {
		t.Fatalf("candidates = %+v, want rule plus llm candidate", decision.Candidates)
	}
	if decision.Candidates[0].ProductID != 2 || decision.Candidates[0].Strategy != domain.StrategyRule {
		t.Errorf("top = %+v, want rule candidate for product 2", decision.Candidates[0])
	}
	if decision.Candidates[1].ProductID != 3 || decision.Candidates[1].Strategy != domain.StrategyLLM {
		t.Errorf("second = %+v, want llm candidate for product 3", decision.Candidates[1])
	}
	if decision.Candidates[1].Merged >= decision.Candidates[0].Merged {
		t.Errorf("llm candidate %v must rank behind the rule candidate %v",
			decision.Candidates[1].Merged, decision.Candidates[0].Merged)
	}
}

func TestDecideAllStrategiesEmpty(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)

	catalog := newFakeCatalog(source)
	llm := &fakeLLM{err: errors.New("upstream down")}
	decisions := newFakeDecisionRepo()

	svc := newService(DefaultConfig(), catalog, &fakeRuleRepo{}, &fakeEmbedder{}, llm, decisions, NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 3})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if len(decision.Candidates) != 0 {
		t.Fatalf("candidates = %+v, want none", decision.Candidates)
	}
	if !decision.Trace.LLMInvoked {
		t.Error("empty rule and similarity phases must trigger the LLM")
	}
	if _, err := decisions.FindByID(context.Background(), decision.ID); err != nil {
		t.Errorf("empty decision not persisted: %v", err)
	}
}

func TestDecideUnknownSource(t *testing.T) {
	svc := newService(DefaultConfig(), newFakeCatalog(), &fakeRuleRepo{}, &fakeEmbedder{}, &fakeLLM{}, newFakeDecisionRepo(), NewWeightStore(DefaultWeightTable()))

	_, err := svc.Decide(context.Background(), Request{SourceProductID: 404})
	if err == nil || err.Error() != "product not found" {
		t.Fatalf("err = %v, want product not found", err)
	}
}

func TestDecideRejectsNegativePriceDelta(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	svc := newService(DefaultConfig(), newFakeCatalog(source), &fakeRuleRepo{}, &fakeEmbedder{}, &fakeLLM{}, newFakeDecisionRepo(), NewWeightStore(DefaultWeightTable()))

	_, err := svc.Decide(context.Background(), Request{SourceProductID: 1, MaxPriceDeltaPct: -0.1})
	if err == nil {
		t.Fatal("expected invalid constraints error")
	}
}

func TestDecideCapsK(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	products := []domain.Product{source}
	vectors := map[string][]float64{embeddingText(source): {1, 0}}
	for i := uint64(2); i <= 31; i++ {
		p := testProduct(i, fmt.Sprintf("ALT-%03d", i), "laptops", 1000, true)
		products = append(products, p)
		vectors[embeddingText(p)] = []float64{1, 0}
	}

	embedder := &fakeEmbedder{vectors: vectors}
	svc := newService(DefaultConfig(), newFakeCatalog(products...), &fakeRuleRepo{}, embedder, &fakeLLM{response: `[]`}, newFakeDecisionRepo(), NewWeightStore(DefaultWeightTable()))

	decision, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 100})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(decision.Candidates) > DefaultConfig().MaxK {
		t.Fatalf("candidates = %d, want at most %d", len(decision.Candidates), DefaultConfig().MaxK)
	}
}

func TestDecideDeterministicOrdering(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	a := testProduct(2, "ALT-002", "laptops", 990, true)
	b := testProduct(3, "ALT-003", "laptops", 980, true)
	c := testProduct(4, "ALT-004", "laptops", 970, true)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(a):      {1, 0},
		embeddingText(b):      {1, 0},
		embeddingText(c):      {0.6, 0.8},
	}}

	svc := newService(DefaultConfig(), newFakeCatalog(source, a, b, c), &fakeRuleRepo{}, embedder, &fakeLLM{response: `[]`}, newFakeDecisionRepo(), NewWeightStore(DefaultWeightTable()))

	first, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 3})
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	second, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 3})
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}

	if len(first.Candidates) != len(second.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first.Candidates), len(second.Candidates))
	}
	for i := range first.Candidates {
		if first.Candidates[i].ProductID != second.Candidates[i].ProductID {
			t.Errorf("position %d differs: %d vs %d", i, first.Candidates[i].ProductID, second.Candidates[i].ProductID)
		}
	}
	// equal merged scores fall back to product id ascending
	if first.Candidates[0].ProductID != 2 || first.Candidates[1].ProductID != 3 {
		t.Errorf("tie-break order = [%d %d], want [2 3]", first.Candidates[0].ProductID, first.Candidates[1].ProductID)
	}
}

func TestDecideSaveFailureSurfaces(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	alt := testProduct(2, "ALT-002", "laptops", 990, true)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(alt):    {1, 0},
	}}
	decisions := newFakeDecisionRepo()
	decisions.saveErr = fmt.Errorf("connection reset")

	svc := newService(DefaultConfig(), newFakeCatalog(source, alt), &fakeRuleRepo{}, embedder, &fakeLLM{response: `[]`}, decisions, NewWeightStore(DefaultWeightTable()))

	_, err := svc.Decide(context.Background(), Request{SourceProductID: 1, K: 1})
	if err == nil {
		t.Fatal("expected save error to surface")
	}
}
