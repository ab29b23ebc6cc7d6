package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/billing/backend/internal/domain/billing"
)

// InMemorySequenceReserver implements billing.SequenceReserver with local
// counters. Suitable for single-instance deployments and tests; distributed
// deployments need the Redis reserver.
type InMemorySequenceReserver struct {
	mu   sync.Mutex
	next map[billing.NumberingKey]int64
}

// NewInMemorySequenceReserver creates an empty in-memory reserver
func NewInMemorySequenceReserver() *InMemorySequenceReserver {
	return &InMemorySequenceReserver{
		next: make(map[billing.NumberingKey]int64),
	}
}

// ReserveBlock reserves a contiguous block of invoice numbers for the key
// and returns the first number of the block
func (r *InMemorySequenceReserver) ReserveBlock(_ context.Context, key billing.NumberingKey, count int64) (int64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", count)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	first := r.next[key] + 1
	r.next[key] += count
	return first, nil
}
