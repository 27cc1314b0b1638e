// Package workerpool runs CPU-bound jobs, such as decoding and re-encoding
// photos before upload, on a fixed number of goroutines.
//
//	uploads := workerpool.Map(4, paths, func(p string) (models.Upload, error) {
//	    return prepare(p)
//	})
//
// Uploads themselves stay sequential; only the local preparation fans out.
package workerpool

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Go after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// New starts a Pool with size workers; size below 1 means 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{tasks: make(chan func(), size)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Go queues task, blocking while every worker is busy and the queue is full.
func (p *Pool) Go(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown waits for queued tasks and stops the workers. Safe to call more
// than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Result is the outcome of one Map item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item on size workers and returns the results in
// input order. A panicking fn is reported as that item's error.
func Map[T, R any](size int, items []T, fn func(T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}
	if size > len(items) {
		size = len(items)
	}

	pool := New(size)
	for i, item := range items {
		i, item := i, item
		_ = pool.Go(func() { out[i] = call(fn, item) })
	}
	pool.Shutdown()
	return out
}

func call[T, R any](fn func(T) (R, error), item T) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("workerpool: panic: %v", r)
		}
	}()
	res.Value, res.Err = fn(item)
	return res
}
