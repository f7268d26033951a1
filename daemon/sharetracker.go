package daemon

import "sync"

// shareTracker accumulates pool-share attempt counts per wallet, grounded on
// original_source/src/daemon.rs's `shares: Mutex<HashMap<String, i64>>`.
type shareTracker struct {
	mu      sync.Mutex
	credits map[string]uint64
}

func newShareTracker() *shareTracker {
	return &shareTracker{credits: make(map[string]uint64)}
}

func (t *shareTracker) record(wallet string, attempts uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credits[wallet] += attempts
}

func (t *shareTracker) creditsFor(wallet string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.credits[wallet]
}
