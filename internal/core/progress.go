package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// InstallHandle tracks one install request from start to completion
type InstallHandle struct {
	ID  uuid.UUID
	Mod string

	percent atomic.Int32
	done    chan struct{}
	once    sync.Once
	err     error
	cancel  context.CancelFunc
}

func newInstallHandle(mod string, cancel context.CancelFunc) *InstallHandle {
	if cancel == nil {
		cancel = func() {}
	}
	return &InstallHandle{
		ID:     uuid.New(),
		Mod:    mod,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Percent returns the download progress, 0 to 100
func (h *InstallHandle) Percent() int {
	return int(h.percent.Load())
}

// setPercent raises the percentage; lower values are ignored
func (h *InstallHandle) setPercent(p int) {
	for {
		cur := h.percent.Load()
		if int32(p) <= cur {
			return
		}
		if h.percent.CompareAndSwap(cur, int32(p)) {
			return
		}
	}
}

// Done is closed once the install has finished
func (h *InstallHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the install's error once Done is closed
func (h *InstallHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Cancel aborts the install if it is still running
func (h *InstallHandle) Cancel() {
	h.cancel()
}

// Wait blocks until the install finishes or ctx is done
func (h *InstallHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *InstallHandle) finish(err error) {
	h.once.Do(func() {
		if err == nil {
			h.setPercent(100)
		}
		h.err = err
		close(h.done)
		h.cancel()
	})
}

// ProgressTracker keeps install handles by id and remembers the latest one
type ProgressTracker struct {
	mu      sync.RWMutex
	handles map[uuid.UUID]*InstallHandle
	latest  *InstallHandle
}

// NewProgressTracker creates an empty tracker
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{handles: make(map[uuid.UUID]*InstallHandle)}
}

func (t *ProgressTracker) add(h *InstallHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[h.ID] = h
	t.latest = h
}

// Get returns the handle for id
func (t *ProgressTracker) Get(id uuid.UUID) (*InstallHandle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handles[id]
	return h, ok
}

// Latest returns the most recently started install's percent, or 0
func (t *ProgressTracker) Latest() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.latest == nil {
		return 0
	}
	return t.latest.Percent()
}

// Prune forgets finished handles other than the latest
func (t *ProgressTracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, h := range t.handles {
		if h == t.latest {
			continue
		}
		select {
		case <-h.done:
			delete(t.handles, id)
		default:
		}
	}
}
