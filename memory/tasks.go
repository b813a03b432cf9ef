package memory

import (
	"context"
	"log"
	"sync"
)

// taskPool runs detached units of work, used for post-hoc fact
// extraction after a reply has already been sent. A task's failure is
// logged by the task itself and never reaches the conversational path.
type taskPool struct {
	tasks  chan func(context.Context)
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newTaskPool(workers, queue int) *taskPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &taskPool{
		tasks:  make(chan func(context.Context), queue),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *taskPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task(p.ctx)
	}
}

// submit queues a task without blocking. When the queue is full the
// task is dropped and logged: losing a background extraction beats
// stalling the reply path.
func (p *taskPool) submit(task func(context.Context)) {
	select {
	case p.tasks <- task:
	default:
		log.Printf("[MEMORY] Task queue full, dropping background task")
	}
}

// close stops accepting tasks, drains the queue, and waits for the
// workers to finish.
func (p *taskPool) close() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		p.cancel()
	})
}
