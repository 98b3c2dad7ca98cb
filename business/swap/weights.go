package swap

import (
	"sync"

	"swapkit/domain"
)

// DefaultWeightTable is version 1 with neutral weights and strictness.
func DefaultWeightTable() domain.WeightTable {
	return domain.WeightTable{
		Version:     1,
		WRule:       1.0,
		WSimilarity: 1.0,
		WLLM:        1.0,
		Strictness:  1.0,
	}
}

// WeightStore holds the process-wide current WeightTable. The arbiter takes a
// snapshot at the start of every decision, so a concurrent reconcile never
// perturbs an in-flight decision.
type WeightStore struct {
	mu      sync.RWMutex
	current domain.WeightTable
}

func NewWeightStore(initial domain.WeightTable) *WeightStore {
	return &WeightStore{current: initial}
}

// Snapshot returns a copy of the current table.
func (s *WeightStore) Snapshot() domain.WeightTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap atomically replaces the current table.
func (s *WeightStore) Swap(table domain.WeightTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = table
}
