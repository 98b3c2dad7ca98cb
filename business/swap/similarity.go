package swap

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"swapkit/domain"
	"swapkit/pkg/logger"
)

// ErrSimilarityUnavailable is reported when the embedding backend cannot
// score the source product. The arbiter degrades and proceeds without the
// similarity phase.
var ErrSimilarityUnavailable = errors.New("similarity strategy unavailable")

// EmbeddingProvider computes a vector for a product text representation.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingCache is the shared (cross-request, cross-process) vector cache.
// Keys include an attribute hash, so a product whose attributes change gets a
// fresh vector without explicit invalidation.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vector []float64) error
}

// SimilarityMatcher ranks a candidate pool by cosine similarity of product
// embeddings. Vectors are computed on first use and memoized; given an
// unchanged cache and pool, repeated calls return identical results.
type SimilarityMatcher struct {
	provider EmbeddingProvider
	cache    EmbeddingCache
	cfg      Config

	// in-process memo on top of the shared cache; last writer wins
	mu   sync.RWMutex
	memo map[string][]float64
}

func NewSimilarityMatcher(provider EmbeddingProvider, cache EmbeddingCache, cfg Config) *SimilarityMatcher {
	return &SimilarityMatcher{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		memo:     make(map[string][]float64),
	}
}

// Rank returns the top-k pool products by similarity to the source,
// confidence descending, ties broken by product id.
func (m *SimilarityMatcher) Rank(ctx context.Context, source domain.Product, pool []domain.Product, k int) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if k <= 0 || len(pool) == 0 {
		return []domain.Candidate{}, nil
	}

	sourceVec, err := m.vectorFor(ctx, source)
	if err != nil {
		logger.Warn("embedding unavailable for source product",
			"product_id", source.ID,
			"error", err,
		)
		return nil, ErrSimilarityUnavailable
	}

	out := make([]domain.Candidate, 0, len(pool))
	for _, p := range pool {
		if p.ID == source.ID || !p.Availability {
			continue
		}

		vec, err := m.vectorFor(ctx, p)
		if err != nil {
			// a single candidate failing to embed is not fatal
			logger.Debug("embedding unavailable for candidate",
				"product_id", p.ID,
				"error", err,
			)
			continue
		}

		cos := cosine(sourceVec, vec)
		out = append(out, domain.Candidate{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Strategy:   domain.StrategySimilarity,
			RawScore:   cos,
			Confidence: similarityConfidence(cos),
			Reason:     "semantic similarity",
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ProductID < out[j].ProductID
	})

	if len(out) > k {
		out = out[:k]
	}

	return out, nil
}

// vectorFor returns the memoized embedding for a product, computing and
// caching it on first use.
func (m *SimilarityMatcher) vectorFor(ctx context.Context, p domain.Product) ([]float64, error) {
	key := embeddingKey(p)

	m.mu.RLock()
	vec, ok := m.memo[key]
	m.mu.RUnlock()
	if ok {
		return vec, nil
	}

	if m.cache != nil {
		cached, found, err := m.cache.Get(ctx, key)
		if err != nil {
			logger.Debug("embedding cache read failed", "key", key, "error", err)
		} else if found {
			m.remember(key, cached)
			return cached, nil
		}
	}

	vec, err := m.provider.Embed(ctx, embeddingText(p))
	if err != nil {
		return nil, fmt.Errorf("embed product %d: %w", p.ID, err)
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, vec); err != nil {
			logger.Debug("embedding cache write failed", "key", key, "error", err)
		}
	}
	m.remember(key, vec)

	return vec, nil
}

func (m *SimilarityMatcher) remember(key string, vec []float64) {
	m.mu.Lock()
	m.memo[key] = vec
	m.mu.Unlock()
}

// embeddingText builds the text representation that gets embedded. Attribute
// keys are sorted so the text (and therefore the cache key) is stable.
func embeddingText(p domain.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s $%.2f", p.Name, p.Category, p.Price)

	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s:%v", k, p.Attributes[k])
	}

	return b.String()
}

// embeddingKey keys the cache by product id plus a hash of the embedded text,
// so attribute changes produce a new key.
func embeddingKey(p domain.Product) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(embeddingText(p)))
	return fmt.Sprintf("product:%d:%08x", p.ID, h.Sum32())
}

// similarityConfidence maps cosine similarity [-1,1] to [0,1] monotonically.
func similarityConfidence(cos float64) float64 {
	c := (1 + cos) / 2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
