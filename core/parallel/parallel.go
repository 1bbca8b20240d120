// Package parallel splits row ranges across CPU cores for prediction.
package parallel

import (
	"runtime"
	"sync"
)

// MinRows is the row count below which Rows runs on the calling goroutine.
const MinRows = 256

// Workers returns how many goroutines to use for n independent items:
// NumCPU, but never more than n and never less than 1.
func Workers(n int) int {
	w := runtime.NumCPU()
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Rows calls fn on contiguous [start, end) chunks covering 0..n, one chunk
// per worker, and waits for all of them. fn must only write rows inside its
// own chunk.
func Rows(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < MinRows {
		fn(0, n)
		return
	}

	workers := Workers(n)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
