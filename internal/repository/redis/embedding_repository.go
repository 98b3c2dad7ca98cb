package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbeddingRepository caches product embedding vectors in Redis. Cache keys
// carry an attribute hash, so stale vectors simply stop being looked up and
// expire on their own.
type EmbeddingRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEmbeddingRepository(client *redis.Client, ttl time.Duration) *EmbeddingRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *EmbeddingRepository) Get(ctx context.Context, key string) ([]float64, bool, error) {
	val, err := r.client.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get embedding from Redis: %w", err)
	}

	var vector []float64
	err = json.Unmarshal([]byte(val), &vector)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	return vector, true, nil
}

func (r *EmbeddingRepository) Set(ctx context.Context, key string, vector []float64) error {
	jsonData, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = r.client.Set(ctx, cacheKey(key), jsonData, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store embedding in Redis: %w", err)
	}

	return nil
}

func cacheKey(key string) string {
	return fmt.Sprintf("embedding:%s", key)
}
