package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches_LinearChain(t *testing.T) {
	g, err := New([]string{"login", "me", "orders"}, map[string][]string{
		"me":     {"login"},
		"orders": {"me"},
	})
	require.NoError(t, err)

	batches := g.Batches()
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"login"}, batches[0])
	assert.Equal(t, []string{"me"}, batches[1])
	assert.Equal(t, []string{"orders"}, batches[2])
}

func TestBatches_IndependentRoutesShareABatch(t *testing.T) {
	g, err := New([]string{"health", "version"}, nil)
	require.NoError(t, err)

	batches := g.Batches()
	require.Len(t, batches, 1)
	assert.ElementsMatch(t, []string{"health", "version"}, batches[0])
}

func TestBatches_RespectsEveryEdge(t *testing.T) {
	g, err := New([]string{"a", "b", "c", "d"}, map[string][]string{
		"c": {"a", "b"},
		"d": {"c"},
	})
	require.NoError(t, err)

	batches := g.Batches()
	index := map[string]int{}
	for i, batch := range batches {
		for _, n := range batch {
			index[n] = i
		}
	}
	assert.Less(t, index["a"], index["c"])
	assert.Less(t, index["b"], index["c"])
	assert.Less(t, index["c"], index["d"])
}

func TestNew_CycleDetected(t *testing.T) {
	_, err := New([]string{"a", "b"}, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New([]string{"a"}, map[string][]string{
		"a": {"ghost"},
	})
	require.Error(t, err)
	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)
}
