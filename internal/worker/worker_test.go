package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/engine/executor"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/queue"
	"github.com/notifico/notifico/internal/queue/inproc"
)

func TestPool_ProcessesTasksUntilCancelled(t *testing.T) {
	q := inproc.New(10)
	eng := engine.New()
	exec := executor.New(eng, nil)
	pool := New(q, exec, 2, nil)

	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "evt", nil, model.Pipeline{}, nil)
	if err := queue.Send(context.Background(), q, pc); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
		if n := q.Len(); n != 0 {
			t.Errorf("queue still holds %d task(s) after Run returned", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool.Run did not return after context cancellation")
	}
}
