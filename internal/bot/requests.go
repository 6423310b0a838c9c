package bot

import (
	"context"
	"sync"
)

// requestTracker keeps at most one in-flight request per user; starting a new
// one cancels the previous
type requestTracker struct {
	mu      sync.Mutex
	seq     uint64
	pending map[int64]trackedRequest
}

type trackedRequest struct {
	id     uint64
	cancel context.CancelFunc
}

func newRequestTracker() *requestTracker {
	return &requestTracker{pending: make(map[int64]trackedRequest)}
}

// begin returns a context for the user's new request and a release func that must be called when it ends
func (t *requestTracker) begin(parent context.Context, userID int64) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if prev, ok := t.pending[userID]; ok {
		prev.cancel()
	}
	t.seq++
	id := t.seq
	t.pending[userID] = trackedRequest{id: id, cancel: cancel}
	t.mu.Unlock()

	return ctx, func() {
		t.mu.Lock()
		if cur, ok := t.pending[userID]; ok && cur.id == id {
			delete(t.pending, userID)
		}
		t.mu.Unlock()
		cancel()
	}
}

func (t *requestTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
