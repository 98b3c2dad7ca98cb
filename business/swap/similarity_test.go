package swap

import (
	"context"
	"errors"
	"math"
	"testing"

	"swapkit/domain"

	"gorm.io/datatypes"
)

func TestSimilarityRankOrdering(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	near := testProduct(2, "ALT-002", "laptops", 990, true)
	mid := testProduct(3, "ALT-003", "laptops", 980, true)
	far := testProduct(4, "ALT-004", "laptops", 970, true)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(near):   {1, 0},
		embeddingText(mid):    {0, 1},
		embeddingText(far):    {-1, 0},
	}}

	matcher := NewSimilarityMatcher(embedder, newFakeEmbCache(), DefaultConfig())

	cands, err := matcher.Rank(context.Background(), source, []domain.Product{far, mid, near}, 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	if cands[0].ProductID != 2 || cands[1].ProductID != 3 || cands[2].ProductID != 4 {
		t.Fatalf("order = [%d %d %d], want [2 3 4]",
			cands[0].ProductID, cands[1].ProductID, cands[2].ProductID)
	}

	// cosine 1 -> 1.0, cosine 0 -> 0.5, cosine -1 -> 0.0
	wantConf := []float64{1.0, 0.5, 0.0}
	for i, want := range wantConf {
		if math.Abs(cands[i].Confidence-want) > 1e-9 {
			t.Errorf("candidate %d confidence = %v, want %v", i, cands[i].Confidence, want)
		}
	}
	for _, c := range cands {
		if c.Strategy != domain.StrategySimilarity {
			t.Errorf("strategy = %q, want similarity", c.Strategy)
		}
	}
}

func TestSimilarityRankTopK(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	a := testProduct(2, "ALT-002", "laptops", 990, true)
	b := testProduct(3, "ALT-003", "laptops", 980, true)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(a):      {1, 0},
		embeddingText(b):      {0, 1},
	}}

	matcher := NewSimilarityMatcher(embedder, newFakeEmbCache(), DefaultConfig())

	cands, err := matcher.Rank(context.Background(), source, []domain.Product{a, b}, 1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].ProductID != 2 {
		t.Errorf("top candidate = %d, want 2", cands[0].ProductID)
	}
}

func TestSimilarityMemoization(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	a := testProduct(2, "ALT-002", "laptops", 990, true)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		embeddingText(source): {1, 0},
		embeddingText(a):      {1, 0},
	}}

	matcher := NewSimilarityMatcher(embedder, newFakeEmbCache(), DefaultConfig())

	if _, err := matcher.Rank(context.Background(), source, []domain.Product{a}, 5); err != nil {
		t.Fatalf("first Rank: %v", err)
	}
	firstCalls := embedder.callCount()
	if firstCalls != 2 {
		t.Fatalf("first pass embed calls = %d, want 2", firstCalls)
	}

	if _, err := matcher.Rank(context.Background(), source, []domain.Product{a}, 5); err != nil {
		t.Fatalf("second Rank: %v", err)
	}
	if embedder.callCount() != firstCalls {
		t.Errorf("embed calls grew to %d on repeated input", embedder.callCount())
	}
}

func TestSimilaritySharedCacheHit(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	a := testProduct(2, "ALT-002", "laptops", 990, true)

	cache := newFakeEmbCache()
	cache.store[embeddingKey(source)] = []float64{1, 0}
	cache.store[embeddingKey(a)] = []float64{1, 0}

	embedder := &fakeEmbedder{vectors: map[string][]float64{}}
	matcher := NewSimilarityMatcher(embedder, cache, DefaultConfig())

	cands, err := matcher.Rank(context.Background(), source, []domain.Product{a}, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if embedder.callCount() != 0 {
		t.Errorf("embed calls = %d, want 0 with warm cache", embedder.callCount())
	}
}

func TestSimilaritySourceEmbedFailure(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	a := testProduct(2, "ALT-002", "laptops", 990, true)

	embedder := &fakeEmbedder{
		vectors:  map[string][]float64{embeddingText(a): {1, 0}},
		failText: map[string]bool{embeddingText(source): true},
	}
	matcher := NewSimilarityMatcher(embedder, newFakeEmbCache(), DefaultConfig())

	_, err := matcher.Rank(context.Background(), source, []domain.Product{a}, 5)
	if !errors.Is(err, ErrSimilarityUnavailable) {
		t.Fatalf("err = %v, want ErrSimilarityUnavailable", err)
	}
}

func TestSimilarityCandidateEmbedFailureSkipped(t *testing.T) {
	source := testProduct(1, "SRC-001", "laptops", 1000, true)
	good := testProduct(2, "ALT-002", "laptops", 990, true)
	bad := testProduct(3, "ALT-003", "laptops", 980, true)

	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			embeddingText(source): {1, 0},
			embeddingText(good):   {1, 0},
		},
		failText: map[string]bool{embeddingText(bad): true},
	}
	matcher := NewSimilarityMatcher(embedder, newFakeEmbCache(), DefaultConfig())

	cands, err := matcher.Rank(context.Background(), source, []domain.Product{good, bad}, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(cands) != 1 || cands[0].ProductID != 2 {
		t.Fatalf("expected only product 2, got %+v", cands)
	}
}

func TestEmbeddingKeyTracksAttributes(t *testing.T) {
	p := testProduct(1, "SRC-001", "laptops", 1000, true)
	p.Attributes = datatypes.JSONMap{"ram": "16GB"}
	before := embeddingKey(p)

	p.Attributes = datatypes.JSONMap{"ram": "32GB"}
	after := embeddingKey(p)

	if before == after {
		t.Fatalf("cache key did not change when attributes changed: %s", before)
	}
}
