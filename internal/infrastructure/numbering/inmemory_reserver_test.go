package numbering

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() billing.NumberingKey {
	return billing.NewNumberingKey("STANDARD", uuid.New(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestInMemorySequenceReserver_BlocksAreContiguous(t *testing.T) {
	reserver := NewInMemorySequenceReserver()
	ctx := context.Background()
	key := testKey()

	first, err := reserver.ReserveBlock(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := reserver.ReserveBlock(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), second)

	// A different key has its own sequence
	other, err := reserver.ReserveBlock(ctx, testKey(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestInMemorySequenceReserver_RejectsNonPositiveCount(t *testing.T) {
	reserver := NewInMemorySequenceReserver()

	_, err := reserver.ReserveBlock(context.Background(), testKey(), 0)
	assert.Error(t, err)

	_, err = reserver.ReserveBlock(context.Background(), testKey(), -4)
	assert.Error(t, err)
}

func TestInMemorySequenceReserver_ConcurrentReservationsNeverOverlap(t *testing.T) {
	reserver := NewInMemorySequenceReserver()
	ctx := context.Background()
	key := testKey()

	const workers = 16
	const blockSize = 10

	firsts := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			first, err := reserver.ReserveBlock(ctx, key, blockSize)
			assert.NoError(t, err)
			firsts[slot] = first
		}(i)
	}
	wg.Wait()

	sort.Slice(firsts, func(i, j int) bool { return firsts[i] < firsts[j] })
	for i, first := range firsts {
		assert.Equal(t, int64(i*blockSize+1), first)
	}
}
