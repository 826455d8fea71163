// Package worker runs a bounded pool of goroutines that pull pipeline
// tasks off a queue.Receiver and drive them through an executor.Executor,
// grounded on the concurrency-limiting patterns in the teacher's
// internal/mqtt publisher.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/notifico/notifico/internal/engine/executor"
	"github.com/notifico/notifico/internal/queue"
)

// Pool runs up to Concurrency goroutines, each looping
// receive-from-queue → execute → settle.
type Pool struct {
	Receiver    queue.Receiver
	Executor    *executor.Executor
	Concurrency int
	Log         *slog.Logger
}

// New builds a Pool. A Concurrency of 0 defaults to 1.
func New(receiver queue.Receiver, exec *executor.Executor, concurrency int, log *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{Receiver: receiver, Executor: exec, Concurrency: concurrency, Log: log}
}

// Run blocks, running Concurrency worker goroutines until ctx is
// cancelled, then waits for all in-flight tasks to finish before
// returning. Callers typically derive ctx from signal.NotifyContext and
// layer a grace-period timeout around the Run call for shutdown (spec.md
// §5's 30s grace period).
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := p.Log.With("worker", id)
	for {
		if ctx.Err() != nil {
			log.Debug("worker stopping")
			return
		}
		if err := p.Executor.RunFromQueue(ctx, p.Receiver); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("task processing failed", "error", err)
		}
	}
}
