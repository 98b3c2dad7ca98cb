package swap

import (
	"context"
	"errors"
	"sort"
	"sync"

	"swapkit/domain"
)

// in-memory fakes shared by the pipeline tests

type fakeCatalog struct {
	products map[uint64]domain.Product
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	m := make(map[uint64]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) FindByID(ctx context.Context, id uint64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, errors.New("product not found")
	}
	return p, nil
}

func (f *fakeCatalog) FindByCategory(ctx context.Context, category string, excludeID uint64) ([]domain.Product, error) {
	out := make([]domain.Product, 0)
	for _, p := range f.products {
		if p.Category == category && p.ID != excludeID && p.Availability {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRuleRepo struct {
	rules []domain.SwapRule
	err   error
}

func (f *fakeRuleRepo) FindActiveBySourceProduct(ctx context.Context, sourceProductID uint64) ([]domain.SwapRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.SwapRule, 0)
	for _, r := range f.rules {
		if r.Active && r.SourceProductID == sourceProductID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// fakeEmbedder returns canned vectors keyed by the embedded text.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float64
	failText map[string]bool
	calls    int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failText[text] {
		return nil, errors.New("embedding backend down")
	}
	vec, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for text")
	}
	return vec, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmbCache struct {
	mu    sync.Mutex
	store map[string][]float64
	gets  int
	sets  int
}

func newFakeEmbCache() *fakeEmbCache {
	return &fakeEmbCache{store: make(map[string][]float64)}
}

func (f *fakeEmbCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	vec, ok := f.store[key]
	return vec, ok, nil
}

func (f *fakeEmbCache) Set(ctx context.Context, key string, vector []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.store[key] = vector
	return nil
}

// fakeLLM returns a fixed response, optionally failing the first call.
type fakeLLM struct {
	mu        sync.Mutex
	response  string
	err       error
	failFirst bool
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFirst && f.calls == 1 {
		return "", errors.New("transient transport error")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDecisionRepo struct {
	mu        sync.Mutex
	decisions map[string]domain.SwapDecision
	order     []string
	saveErr   error
}

func newFakeDecisionRepo() *fakeDecisionRepo {
	return &fakeDecisionRepo{decisions: make(map[string]domain.SwapDecision)}
}

func (f *fakeDecisionRepo) Save(ctx context.Context, decision *domain.SwapDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.decisions[decision.ID] = *decision
	f.order = append(f.order, decision.ID)
	return nil
}

func (f *fakeDecisionRepo) FindByID(ctx context.Context, id string) (domain.SwapDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decisions[id]
	if !ok {
		return domain.SwapDecision{}, errors.New("decision not found")
	}
	return d, nil
}

func (f *fakeDecisionRepo) FindRecent(ctx context.Context, limit int) ([]domain.SwapDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SwapDecision, 0, limit)
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.decisions[f.order[i]])
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	mu      sync.Mutex
	signals []domain.FeedbackSignal
}

func (f *fakeFeedbackRepo) Save(ctx context.Context, signal *domain.FeedbackSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, *signal)
	return nil
}

func (f *fakeFeedbackRepo) FindByDecisionIDs(ctx context.Context, decisionIDs []string) ([]domain.FeedbackSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]struct{}, len(decisionIDs))
	for _, id := range decisionIDs {
		want[id] = struct{}{}
	}
	out := make([]domain.FeedbackSignal, 0, len(f.signals))
	for _, s := range f.signals {
		if _, ok := want[s.DecisionID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeFeedbackRepo) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, s := range f.signals {
		counts[s.Outcome]++
	}
	return counts, nil
}

type fakeWeightRepo struct {
	mu    sync.Mutex
	saved []domain.WeightTable
}

func (f *fakeWeightRepo) SaveVersion(ctx context.Context, table domain.WeightTable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, table)
	return nil
}

func (f *fakeWeightRepo) LatestVersion(ctx context.Context) (domain.WeightTable, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return domain.WeightTable{}, false, nil
	}
	return f.saved[len(f.saved)-1], true, nil
}
