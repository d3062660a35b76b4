package coordinator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatorEmpty(t *testing.T) {
	agg := NewAggregator[string]()
	snap := agg.Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
	assert.Equal(t, 0, agg.Len())
}

func TestAggregatorKeepsArrivalOrder(t *testing.T) {
	agg := NewAggregator[string]()
	agg.Add("b")
	agg.Add("a")
	agg.Add("a")

	assert.Equal(t, []string{"b", "a", "a"}, agg.Snapshot(), "no sorting, no dedup")
}

func TestAggregatorSnapshotIsCopy(t *testing.T) {
	agg := NewAggregator[int]()
	agg.Add(1)

	snap := agg.Snapshot()
	agg.Add(2)
	snap[0] = 99

	assert.Len(t, snap, 1, "later adds do not show up in an earlier snapshot")
	assert.Equal(t, []int{1, 2}, agg.Snapshot(), "writes to a snapshot do not leak back")
}

func TestAggregatorConcurrentAdd(t *testing.T) {
	agg := NewAggregator[int]()

	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				agg.Add(g*100 + i)
				agg.Snapshot()
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 1000, agg.Len())
}
