package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrTerminated is returned when the pool is stopped.
	ErrTerminated = errors.New("terminated")
)

// task runs once, or is dropped if the pool stops first.
type task struct {
	run  func()
	drop func()
}

// Workers is a fixed-size pool executing queued agent tasks.
type Workers struct {
	quit  chan struct{}
	wg    *sync.WaitGroup
	tasks chan task
}

func New(wg *sync.WaitGroup, quit chan struct{}, maxTasks int) *Workers {
	return &Workers{
		tasks: make(chan task, maxTasks),
		quit:  quit,
		wg:    wg,
	}
}

func (w *Workers) Start(workersN int) {
	for i := 0; i < workersN; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			worker(w.tasks, w.quit)
		}()
	}
}

// Enqueue blocks until the task is queued, the pool is stopped or ctx is done.
func (w *Workers) Enqueue(ctx context.Context, fn func()) error {
	return w.enqueue(ctx, task{run: fn})
}

func (w *Workers) enqueue(ctx context.Context, t task) error {
	select {
	case w.tasks <- t:
		return nil
	case <-w.quit:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Batch enqueues all the tasks and waits until every queued one has run.
// If the pool stops meanwhile, the tasks still queued are dropped and
// ErrTerminated is returned. Tasks which couldn't be queued are reported by
// the returned error.
func (w *Workers) Batch(ctx context.Context, fns ...func()) error {
	var (
		done    sync.WaitGroup
		dropped int32
		err     error
	)
	for _, fn := range fns {
		fn := fn
		done.Add(1)
		err = w.enqueue(ctx, task{
			run: func() {
				defer done.Done()
				fn()
			},
			drop: func() {
				atomic.AddInt32(&dropped, 1)
				done.Done()
			},
		})
		if err != nil {
			done.Done()
			break
		}
	}

	finished := make(chan struct{})
	go func() {
		done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-w.quit:
		w.Drain()
		<-finished
	}
	if err == nil && atomic.LoadInt32(&dropped) != 0 {
		err = ErrTerminated
	}
	return err
}

// Drain drops the queued tasks.
func (w *Workers) Drain() {
	for {
		select {
		case t := <-w.tasks:
			if t.drop != nil {
				t.drop()
			}
		default:
			return
		}
	}
}

func (w *Workers) TasksCount() int {
	return len(w.tasks)
}

func worker(tasksC <-chan task, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case t := <-tasksC:
			t.run()
		}
	}
}
