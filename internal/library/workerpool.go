package library

import (
	"context"
	"runtime"
	"sync"
)

// workerPool runs one function over a fixed set of jobs with a bounded
// number of goroutines and collects the results in submission order.
type workerPool[Job any, Result any] struct {
	numWorkers int
}

// newWorkerPool sizes the pool to numWorkers, or NumCPU when numWorkers is
// not positive, and never larger than numJobs.
func newWorkerPool[Job any, Result any](numWorkers, numJobs int) *workerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}
	return &workerPool[Job, Result]{numWorkers: numWorkers}
}

// Run calls fn for every job. Jobs not yet started when ctx is cancelled are
// skipped and Run returns ctx.Err(). results[i] belongs to jobs[i].
func (p *workerPool[Job, Result]) Run(ctx context.Context, jobs []Job, fn func(context.Context, Job) Result) ([]Result, error) {
	results := make([]Result, len(jobs))
	indexes := make(chan int)
	var wg sync.WaitGroup

	for range p.numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = fn(ctx, jobs[i])
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return results, ctx.Err()
}
