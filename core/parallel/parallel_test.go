package parallel

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, 1, Workers(0))
	assert.Equal(t, 1, Workers(1))
	assert.LessOrEqual(t, Workers(1_000_000), runtime.NumCPU())
}

func TestRows_CoversEveryRowOnce(t *testing.T) {
	for _, n := range []int{0, 1, MinRows - 1, MinRows, 10_007} {
		seen := make([]int, n)
		var mu sync.Mutex
		chunks := 0
		Rows(n, func(start, end int) {
			mu.Lock()
			chunks++
			mu.Unlock()
			for i := start; i < end; i++ {
				seen[i]++
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("n=%d: row %d visited %d times", n, i, c)
			}
		}
		if n > 0 && n < MinRows {
			assert.Equal(t, 1, chunks, "n=%d runs inline", n)
		}
	}
}
