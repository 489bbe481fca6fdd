package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one Job
type Result interface {
	GetError() error
}

// JobFunc adapts a function to the Job interface
type JobFunc func(ctx context.Context) Result

// Execute calls f
func (f JobFunc) Execute(ctx context.Context) Result {
	return f(ctx)
}

type indexed struct {
	idx int
	job Job
}

type indexedResult struct {
	idx    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	workers   int
	jobQueue  chan indexed
	results   chan indexedResult
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	submitted int
}

// NewPool creates a pool of workers bound to ctx; at least one worker runs
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:  workers,
		jobQueue: make(chan indexed, workers*2),
		results:  make(chan indexedResult, workers*2),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		// drain without running once cancelled so Close never blocks
		if p.ctx.Err() != nil {
			continue
		}
		p.results <- indexedResult{idx: job.idx, result: job.job.Execute(p.ctx)}
	}
}

// Submit queues a job. It must not be called after Close.
func (p *Pool) Submit(job Job) {
	p.jobQueue <- indexed{idx: p.submitted, job: job}
	p.submitted++
}

// Close stops accepting jobs; workers exit once the queue drains
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobQueue) })
}

// Shutdown cancels in-flight work and stops accepting jobs
func (p *Pool) Shutdown() {
	p.cancel()
	p.Close()
}

// Run executes jobs on a fresh pool and returns their results in submission
// order. Jobs skipped because ctx was cancelled have a nil result.
func Run(ctx context.Context, workers int, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	pool := NewPool(ctx, workers)
	pool.Start()
	defer pool.cancel()

	go func() {
		for _, job := range jobs {
			pool.Submit(job)
		}
		pool.Close()
	}()

	for r := range pool.results {
		results[r.idx] = r.result
	}
	return results
}
