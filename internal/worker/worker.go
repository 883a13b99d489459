// Package worker provides a small fixed-size task pool used to bound the
// parallelism of outbound push sends.
package worker

import (
	"context"
	"sync"
)

// Task is a unit of work. The context is the pool's run context; tasks
// should respect its cancellation.
type Task func(ctx context.Context)

type Pool struct {
	numWorkers int
	tasks      chan Task
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, bufferSize int) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan Task, bufferSize),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Run what is already queued before exiting so submitters
			// waiting on task completion are not stranded.
			p.drain(ctx)
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

func (p *Pool) drain(ctx context.Context) {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task(ctx)
		default:
			return
		}
	}
}

// Submit blocks when the buffer is full.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}
