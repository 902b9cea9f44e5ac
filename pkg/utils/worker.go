package utils

import (
	"iter"
	"sync"
)

// WorkerPool runs a fixed number of workers over a job channel.
type WorkerPool[J any, R any] struct {
	workers int

	working sync.Once
	work    func(J) R

	jobs      chan J
	responses chan Response[R]
}

type Response[R any] struct {
	WorkerID int
	Response R
}

// NewWorkerPool creates a new worker pool with the given number of workers.
// The channels are buffered to the number of workers.
// work is called once per job; its return value is sent to the response channel.
func NewWorkerPool[J any, R any](workers int, work func(J) R) *WorkerPool[J, R] {
	workers = max(workers, 1)
	return &WorkerPool[J, R]{workers: workers, work: work, jobs: make(chan J, workers), responses: make(chan Response[R], workers)}
}

// Cap returns the capacity of the worker pool.
func (p *WorkerPool[_, _]) Cap() int { return p.workers }

// Work starts the worker pool and returns a channel of Response[R] to receive results.
// The channel is closed once Close has been called and every job has finished.
func (p *WorkerPool[_, R]) Work() <-chan Response[R] {
	p.working.Do(p.do)
	return p.responses
}

func (p *WorkerPool[J, R]) do() {
	var workSet sync.WaitGroup
	workSet.Add(p.workers)
	for id := range p.workers {
		go func() {
			defer workSet.Done()
			for j := range p.jobs {
				p.responses <- Response[R]{WorkerID: id, Response: p.work(j)}
			}
		}()
	}

	go func() {
		workSet.Wait()
		close(p.responses)
	}()
}

// Add adds jobs to the worker pool. It blocks if the pool is full.
func (p *WorkerPool[J, _]) Add(j ...J) {
	for _, j := range j {
		p.jobs <- j
	}
}

// AddAndClose adds jobs from another goroutine and closes the pool after all jobs are added.
func (p *WorkerPool[J, _]) AddAndClose(j ...J) {
	go func() {
		p.Add(j...)
		p.Close()
	}()
}

// Close closes the job channel. Add panics after Close.
func (p *WorkerPool[_, _]) Close() {
	close(p.jobs)
}

// Iter starts the pool and yields every result as it is received.
func (p *WorkerPool[_, R]) Iter() iter.Seq[R] {
	return func(yield func(R) bool) {
		for r := range p.Work() {
			if !yield(r.Response) {
				return
			}
		}
	}
}

// Iter returns an iterator over the values received from a channel.
func Iter[R any](results <-chan R) iter.Seq[R] {
	return func(yield func(R) bool) {
		for res := range results {
			if !yield(res) {
				return
			}
		}
	}
}
