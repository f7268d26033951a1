package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	owoerrors "github.com/tosterlolz/Owonero/errors"
	"github.com/tosterlolz/Owonero/rxhash"
	"github.com/tosterlolz/Owonero/ulog"
)

// Store owns the ordered sequence of blocks and serializes every mutation
// behind a single mutex, held only for the validate-and-push step — never
// across file or network I/O — matching §5's ordering guarantee.
type Store struct {
	mu     sync.Mutex
	bc     Blockchain
	hasher *rxhash.Hasher
	log    ulog.Logger
}

// NewStore returns a Store seeded with an in-memory genesis block.
func NewStore(hasher *rxhash.Hasher, log ulog.Logger) *Store {
	return &Store{
		bc: Blockchain{
			Chain:           []Block{Genesis(hasher)},
			TargetBlockTime: DefaultTargetBlockTime,
		},
		hasher: hasher,
		log:    log,
	}
}

// LoadOrInit loads the blockchain document at path, or constructs and
// persists a fresh genesis-only chain if the file does not exist. Every
// loaded block's hash is recomputed defensively (the stored digest is never
// trusted), and the reloaded chain's integrity is verified before return.
func LoadOrInit(path string, hasher *rxhash.Hasher, log ulog.Logger) (*Store, error) {
	s := &Store{hasher: hasher, log: log}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.bc = Blockchain{
			Chain:           []Block{Genesis(hasher)},
			TargetBlockTime: DefaultTargetBlockTime,
		}
		if err := s.Save(path); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "reading blockchain file", err)
	}

	var bc Blockchain
	if err := json.Unmarshal(data, &bc); err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "parsing blockchain JSON", err)
	}

	for i := range bc.Chain {
		bc.Chain[i].Hash = ComputeHash(hasher, bc.Chain[i])
	}

	if len(bc.Chain) == 0 {
		bc.Chain = []Block{Genesis(hasher)}
	}
	if bc.TargetBlockTime == 0 {
		bc.TargetBlockTime = DefaultTargetBlockTime
	}

	s.bc = bc
	if err := s.verifyChainLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save serializes the whole chain as pretty JSON, writing to a temp file in
// the same directory and renaming over the destination so a crash mid-write
// never leaves a truncated document in place.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.bc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return owoerrors.New(owoerrors.Corrupt, "serializing blockchain", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".blockchain-*.tmp")
	if err != nil {
		return owoerrors.New(owoerrors.Corrupt, "creating temp blockchain file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return owoerrors.New(owoerrors.Corrupt, "writing temp blockchain file", err)
	}
	if err := tmp.Close(); err != nil {
		return owoerrors.New(owoerrors.Corrupt, "closing temp blockchain file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return owoerrors.New(owoerrors.Corrupt, "renaming blockchain file into place", err)
	}
	return nil
}

// Tip returns the current last block.
func (s *Store) Tip() Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bc.Chain[len(s.bc.Chain)-1]
}

// Height returns the tip's index.
func (s *Store) Height() uint64 {
	return s.Tip().Index
}

// Chain returns a copy of the full persisted document.
func (s *Store) Chain() Blockchain {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := Blockchain{
		Chain:           make([]Block, len(s.bc.Chain)),
		TargetBlockTime: s.bc.TargetBlockTime,
	}
	copy(cp.Chain, s.bc.Chain)
	return cp
}

// BlockAt returns the block at index i, if present.
func (s *Store) BlockAt(i uint64) (Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bc.Chain {
		if b.Index == i {
			return b, true
		}
	}
	return Block{}, false
}

// Difficulty returns the difficulty the next block must satisfy, per the
// Difficulty Oracle (C4).
func (s *Store) Difficulty() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DynamicDifficulty(s.bc.Chain, s.bc.TargetBlockTime)
}

// TargetBlockTime returns the configured target block interval in seconds.
func (s *Store) TargetBlockTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bc.TargetBlockTime
}

// ValidateBlock enforces §4.3's invariants against candidate, returning nil
// on success or the first violated *errors.Error otherwise. difficulty is
// the network difficulty the caller expects candidate to satisfy — not
// candidate.Difficulty, which is only a recorded annotation.
func (s *Store) ValidateBlock(candidate Block, difficulty uint32, skipPoW bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateBlockLocked(candidate, difficulty, skipPoW)
}

func (s *Store) validateBlockLocked(candidate Block, difficulty uint32, skipPoW bool) error {
	if len(s.bc.Chain) == 0 {
		if candidate.Index != 0 {
			return owoerrors.New(owoerrors.IndexMismatch, "genesis block must have index 0, got %d", candidate.Index)
		}
		if candidate.PrevHash != "" {
			return owoerrors.New(owoerrors.PrevHashMismatch, "genesis block must have empty prev_hash, got %s", candidate.PrevHash)
		}
		if ComputeHash(s.hasher, candidate) != candidate.Hash {
			return owoerrors.New(owoerrors.HashMismatch, "genesis block hash mismatch")
		}
		return nil
	}

	tip := s.bc.Chain[len(s.bc.Chain)-1]

	if candidate.PrevHash != tip.Hash {
		return owoerrors.New(owoerrors.PrevHashMismatch, "PrevHash mismatch: expected %s got %s", tip.Hash, candidate.PrevHash)
	}
	if ComputeHash(s.hasher, candidate) != candidate.Hash {
		return owoerrors.New(owoerrors.HashMismatch, "hash mismatch")
	}
	if candidate.Index != tip.Index+1 {
		return owoerrors.New(owoerrors.IndexMismatch, "index mismatch: expected %d got %d", tip.Index+1, candidate.Index)
	}

	if !skipPoW && !rxhash.MeetsDifficulty(candidate.Hash, difficulty) {
		return owoerrors.New(owoerrors.PoWFailed, "PoW check failed at difficulty %d", difficulty)
	}

	for _, tx := range candidate.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		if !tx.VerifySignature() {
			return owoerrors.New(owoerrors.InvalidSignature, "invalid transaction signature for tx from %s to %s", tx.From, tx.To)
		}
	}

	return nil
}

// VerifyShare checks candidate against a pool share difficulty without
// appending it to the chain, per §1's distinction between a mined block and
// a share: a share only has to clear the reduced pool difficulty and chain
// linkage, never the chain's own PoW target, and it never extends the chain.
func (s *Store) VerifyShare(candidate Block, shareDifficulty uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip := s.bc.Chain[len(s.bc.Chain)-1]
	if candidate.PrevHash != tip.Hash {
		return owoerrors.New(owoerrors.PrevHashMismatch, "share prev_hash mismatch: expected %s got %s", tip.Hash, candidate.PrevHash)
	}
	if ComputeHash(s.hasher, candidate) != candidate.Hash {
		return owoerrors.New(owoerrors.HashMismatch, "share hash mismatch")
	}
	if !rxhash.MeetsDifficulty(candidate.Hash, shareDifficulty) {
		return owoerrors.New(owoerrors.PoWFailed, "share PoW check failed at difficulty %d", shareDifficulty)
	}
	for _, tx := range candidate.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		if !tx.VerifySignature() {
			return owoerrors.New(owoerrors.InvalidSignature, "invalid transaction signature for tx from %s to %s", tx.From, tx.To)
		}
	}
	return nil
}

// Append validates candidate against difficulty and pushes it onto the
// chain on success. Candidates with index <= tip.index are always rejected
// — ValidateBlock's index-equality check already enforces this.
func (s *Store) Append(candidate Block, difficulty uint32, skipPoW bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateBlockLocked(candidate, difficulty, skipPoW); err != nil {
		return err
	}
	s.bc.Chain = append(s.bc.Chain, candidate)
	return nil
}

// VerifyChain re-checks invariants 1-4 of §3 across the whole chain.
func (s *Store) VerifyChain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyChainLocked()
}

func (s *Store) verifyChainLocked() error {
	if len(s.bc.Chain) > 0 {
		g := Genesis(s.hasher)
		if first := s.bc.Chain[0]; first.Hash != g.Hash || first.Difficulty != g.Difficulty {
			return owoerrors.New(owoerrors.Corrupt, "block 0 does not match the genesis block")
		}
	}
	for i := 1; i < len(s.bc.Chain); i++ {
		prev := s.bc.Chain[i-1]
		cur := s.bc.Chain[i]

		if cur.Index != prev.Index+1 {
			return owoerrors.New(owoerrors.Corrupt,
				fmt.Sprintf("chain broken at position %d: index %d does not follow %d", i, cur.Index, prev.Index))
		}
		if cur.PrevHash != prev.Hash {
			return owoerrors.New(owoerrors.Corrupt,
				fmt.Sprintf("chain broken at index %d: prev_hash %s != prev.hash %s", cur.Index, cur.PrevHash, prev.Hash))
		}
		if ComputeHash(s.hasher, cur) != cur.Hash {
			return owoerrors.New(owoerrors.Corrupt, fmt.Sprintf("invalid hash at index %d", cur.Index))
		}
		for _, tx := range cur.Transactions {
			if tx.IsCoinbase() {
				continue
			}
			if !tx.VerifySignature() {
				return owoerrors.New(owoerrors.Corrupt,
					fmt.Sprintf("invalid transaction signature at index %d for tx from %s to %s", cur.Index, tx.From, tx.To))
			}
		}
	}
	return nil
}

// ReplaceChain substitutes the entire chain with an independently validated
// candidate, used during peer sync when the candidate is longer than the
// current chain. The caller is responsible for choosing "longer" (§1's
// longest-valid-chain-wins rule); ReplaceChain only re-verifies integrity.
func (s *Store) ReplaceChain(candidate Blockchain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevBC := s.bc
	s.bc = candidate
	for i := range s.bc.Chain {
		s.bc.Chain[i].Hash = ComputeHash(s.hasher, s.bc.Chain[i])
	}
	if err := s.verifyChainLocked(); err != nil {
		s.bc = prevBC
		return err
	}
	return nil
}
