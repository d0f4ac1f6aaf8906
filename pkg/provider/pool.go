package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("provider closed")

type task struct {
	fn   func() error
	err  error
	done chan struct{}
}

// pool runs submitted functions on a fixed set of goroutines. Callers block
// until their function has finished, so the lookup contract stays synchronous.
type pool struct {
	tasks chan *task
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newPool(workers int) *pool {
	p := &pool{
		tasks: make(chan *task),
		quit:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *pool) work() {
	defer p.wg.Done()
	for {
		select {
		case t := <-p.tasks:
			t.err = run(t.fn)
			close(t.done)
		case <-p.quit:
			return
		}
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lookup panicked: %v", r)
		}
	}()
	return fn()
}

// Do waits for a free worker, runs fn on it and returns fn's error. ctx only
// bounds the wait for a worker; a started task always runs to completion.
func (p *pool) Do(ctx context.Context, fn func() error) error {
	t := &task{fn: fn, done: make(chan struct{})}
	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrClosed
	}
	<-t.done
	return t.err
}

func (p *pool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
