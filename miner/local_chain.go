package miner

import (
	"sync"

	"github.com/tosterlolz/Owonero/chain"
)

// localChain mirrors enough of the authoritative chain for workers to
// compute the Difficulty Oracle locally, generalizing the original
// implementation's Arc<Mutex<Blockchain>> into a small struct. It holds the
// whole mirrored chain; nothing is trimmed to the DifficultyWindow tail.
type localChain struct {
	mu sync.Mutex
	bc chain.Blockchain
}

func newLocalChain(bc chain.Blockchain) *localChain {
	return &localChain{bc: bc}
}

// Tip returns the locally known chain tip.
func (lc *localChain) Tip() chain.Block {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.bc.Chain[len(lc.bc.Chain)-1]
}

// Difficulty computes the Difficulty Oracle's value over the local mirror.
func (lc *localChain) Difficulty() uint32 {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return chain.DynamicDifficulty(lc.bc.Chain, lc.bc.TargetBlockTime)
}

// SetChain replaces the whole local mirror, used after a full resync.
func (lc *localChain) SetChain(bc chain.Blockchain) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.bc = bc
}

// Observe folds an externally observed tip into the mirror. changed reports
// whether the mirror's tip moved; needsResync reports that tip did not
// cleanly extend the mirror (a fork or a gap) and the caller should fetch
// the full authoritative chain instead.
func (lc *localChain) Observe(tip chain.Block) (changed, needsResync bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.bc.Chain) == 0 {
		lc.bc.Chain = []chain.Block{tip}
		return true, false
	}

	cur := lc.bc.Chain[len(lc.bc.Chain)-1]
	if cur.Hash == tip.Hash {
		return false, false
	}
	if tip.Index == cur.Index+1 && tip.PrevHash == cur.Hash {
		lc.bc.Chain = append(lc.bc.Chain, tip)
		return true, false
	}
	return false, true
}

// AppendIfNext appends b to the mirror if it cleanly extends the current
// tip, used by the Submitter to fold in its own accepted submission without
// waiting for the next Tip Poller cycle.
func (lc *localChain) AppendIfNext(b chain.Block) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.bc.Chain) == 0 {
		return false
	}
	cur := lc.bc.Chain[len(lc.bc.Chain)-1]
	if b.Index == cur.Index+1 && b.PrevHash == cur.Hash {
		lc.bc.Chain = append(lc.bc.Chain, b)
		return true
	}
	return false
}
