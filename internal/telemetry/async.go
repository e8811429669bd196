package telemetry

import (
	"context"
	"log"
	"sync"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// Async runs Emit on a wrapped EventEmitter in the background so request handlers are
// not blocked. In-flight emits are tracked so Drain can wait for them before the OTel
// providers shut down.
type Async struct {
	emitter EventEmitter
	wg      sync.WaitGroup
}

// NewAsync wraps emitter. A nil emitter yields an Async whose Emit is a no-op.
func NewAsync(emitter EventEmitter) *Async {
	return &Async{emitter: emitter}
}

// Emit starts a best-effort emit of event and returns immediately; errors are logged.
// The emit uses context.Background() with emitTimeout so request cancellation does not
// abort it. a, its emitter, and event may be nil.
func (a *Async) Emit(ctx context.Context, event *Event) {
	if a == nil || a.emitter == nil || event == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := a.emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}

// Drain blocks until every started emit has returned or ctx is done.
func (a *Async) Drain(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
