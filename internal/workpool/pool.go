// Package workpool runs CPU heavy jobs on a fixed set of worker goroutines.
//
// Jobs are admitted through a bounded queue. When the queue is full, Do fails
// fast with ErrQueueFull instead of piling up work, so that a burst of
// requests can't exhaust memory or starve the HTTP handlers.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrQueueFull is returned when a job can't be admitted.
	ErrQueueFull = errors.New("work queue is full")
	// ErrClosed is returned when a job is submitted after Close.
	ErrClosed = errors.New("work pool is closed")
	// ErrPanicked is returned when a job panicked. The worker survives.
	ErrPanicked = errors.New("job panicked")
)

// Config configures a Pool. Zero values are replaced by defaults.
type Config struct {
	// Workers is the number of worker goroutines, defaults to runtime.NumCPU().
	Workers int
	// QueueSize is the number of jobs that can wait for a worker, defaults to 4 * Workers.
	QueueSize int
	// Name is used as a label on the pool metrics.
	Name string
}

type job struct {
	fn   func()
	done chan struct{}
	// err is written before done is closed.
	err error
}

// Pool is a bounded worker pool. Create one with New.
type Pool struct {
	jobs    chan *job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	metrics *poolMetrics
}

// New starts a pool. Close must be called to stop the workers.
// reg may be nil, in which case no metrics are registered.
func New(cfg Config, reg prometheus.Registerer) (*Pool, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	m, err := newPoolMetrics(cfg.Name, reg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		jobs:    make(chan *job, cfg.QueueSize),
		metrics: m,
	}

	p.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go p.work()
	}

	return p, nil
}

func (p *Pool) work() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.metrics.queued.Dec()
		p.run(j)
	}
}

func (p *Pool) run(j *job) {
	p.metrics.busy.Inc()
	defer func() {
		if r := recover(); r != nil {
			j.err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
		p.metrics.busy.Dec()
		close(j.done)
	}()

	j.fn()
}

// Do runs fn on one of the workers and waits for it to finish.
//
// A panic in fn is returned as an error wrapping ErrPanicked.
// If ctx ends before fn finished, Do returns ctx.Err(). A job that was
// already admitted still runs to completion, fn must not assume that
// anyone is waiting for its result.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{
		fn:   fn,
		done: make(chan struct{}),
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}

	p.metrics.queued.Inc()
	select {
	case p.jobs <- j:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		p.metrics.queued.Dec()
		p.metrics.rejected.Inc()
		return ErrQueueFull
	}

	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, waits for queued jobs to finish and stops the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// Submit runs fn on the pool and returns its result.
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var (
		res T
		err error
	)

	// res and err are only read after the job is done.
	done := make(chan struct{})
	pErr := p.Do(ctx, func() {
		defer close(done)
		res, err = fn()
	})
	if pErr != nil {
		var zero T
		return zero, pErr
	}

	<-done
	return res, err
}
