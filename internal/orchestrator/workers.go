package orchestrator

import "context"

// workerSlots bounds how many timestamps are processed concurrently.
// A nil *workerSlots means no bound.
type workerSlots struct {
	slots chan struct{}
}

// newWorkerSlots returns a pool of the given size, or nil when limit <= 0.
func newWorkerSlots(limit int) *workerSlots {
	if limit <= 0 {
		return nil
	}
	return &workerSlots{slots: make(chan struct{}, limit)}
}

// acquire claims a slot, blocking until one frees up or ctx is cancelled.
// It reports whether the slot was obtained.
func (w *workerSlots) acquire(ctx context.Context) bool {
	if w == nil {
		return true
	}
	select {
	case w.slots <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// release returns a slot claimed by acquire.
func (w *workerSlots) release() {
	if w == nil {
		return
	}
	<-w.slots
}
