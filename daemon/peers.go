package daemon

import "sync"

// PeerManager tracks the set of known peer addresses, grounded on
// original_source/src/daemon.rs's PeerManager.
type PeerManager struct {
	mu    sync.Mutex
	peers []string
}

// NewPeerManager returns an empty PeerManager.
func NewPeerManager() *PeerManager {
	return &PeerManager{}
}

// AddPeer records addr if it is not already known.
func (pm *PeerManager) AddPeer(addr string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range pm.peers {
		if p == addr {
			return
		}
	}
	pm.peers = append(pm.peers, addr)
}

// Peers returns a copy of the known peer list.
func (pm *PeerManager) Peers() []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	cp := make([]string, len(pm.peers))
	copy(cp, pm.peers)
	return cp
}
