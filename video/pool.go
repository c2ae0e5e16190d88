package video

import (
	"sync"
)

// runWorkers starts n goroutines running work and returns a WaitGroup that
// completes once all of them have returned.
func runWorkers(n int, work func(id int)) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			work(id)
		}(i)
	}
	return wg
}
