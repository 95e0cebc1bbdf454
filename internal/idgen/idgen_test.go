package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextReturnsUniqueMonotonicIds(t *testing.T) {
	g := New()

	var prev string
	for i := 0; i < 100; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		require.False(t, id.IsZero())
		require.Greater(t, id.String(), prev)
		prev = id.String()
	}
}

func TestNextConcurrentCallsStayUnique(t *testing.T) {
	g := New()

	const n = 200
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := g.Next()
			require.NoError(t, err)
			ids[i] = id.String()
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
