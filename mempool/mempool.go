// Package mempool implements the Mempool (C5): a signature-de-duplicated
// set of pending transactions with balance-based admission. Grounded on
// original_source/src/daemon.rs's mempool handling, supplemented with a
// signature index (§4.5's [ADD]) so SubmitTx's duplicate check is O(1)
// instead of a linear scan across a shared, hot request path.
package mempool

import (
	"strings"
	"sync"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
)

// Mempool is safe for concurrent use.
type Mempool struct {
	mu   sync.Mutex
	txs  []chain.Transaction
	seen map[string]struct{}
}

// New returns an empty Mempool.
func New() *Mempool {
	return &Mempool{seen: make(map[string]struct{})}
}

// SubmitTx validates tx against §4.5's rules and appends it on success.
func (m *Mempool) SubmitTx(tx chain.Transaction, bc chain.Blockchain) error {
	if !tx.VerifySignature() {
		return owoerrors.New(owoerrors.InvalidSignature, "invalid transaction signature")
	}
	if tx.Amount <= 0 {
		return owoerrors.New(owoerrors.InvalidAmount, "amount must be positive, got %d", tx.Amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seen[tx.Signature]; dup {
		return nil
	}

	if !tx.IsCoinbase() {
		balance := chainBalance(bc, tx.From) - m.pendingSumLocked(tx.From)
		if balance < tx.Amount {
			return owoerrors.New(owoerrors.InsufficientFunds, "insufficient funds: balance %d pending-adjusted, requested %d", balance, tx.Amount)
		}
	}

	m.txs = append(m.txs, tx)
	m.seen[tx.Signature] = struct{}{}
	return nil
}

// pendingSumLocked sums amounts already pending from the same (lowercased)
// sender. Callers must hold m.mu.
func (m *Mempool) pendingSumLocked(from string) int64 {
	sender := strings.ToLower(strings.TrimSpace(from))
	var sum int64
	for _, tx := range m.txs {
		if strings.ToLower(strings.TrimSpace(tx.From)) == sender {
			sum += tx.Amount
		}
	}
	return sum
}

func chainBalance(bc chain.Blockchain, address string) int64 {
	addr := strings.ToLower(strings.TrimSpace(address))
	var balance int64
	for _, block := range bc.Chain {
		for _, tx := range block.Transactions {
			if strings.ToLower(strings.TrimSpace(tx.To)) == addr {
				balance += tx.Amount
			}
			if !tx.IsCoinbase() && strings.ToLower(strings.TrimSpace(tx.From)) == addr {
				balance -= tx.Amount
			}
		}
	}
	return balance
}

// Snapshot returns a copy of the currently pending transactions.
func (m *Mempool) Snapshot() []chain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]chain.Transaction, len(m.txs))
	copy(cp, m.txs)
	return cp
}

// RemoveIncluded drops every pending transaction whose signature appears in
// included, called when a block containing them is appended.
func (m *Mempool) RemoveIncluded(included []chain.Transaction) {
	if len(included) == 0 {
		return
	}
	includedSigs := make(map[string]struct{}, len(included))
	for _, tx := range included {
		includedSigs[tx.Signature] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.txs[:0]
	for _, tx := range m.txs {
		if _, match := includedSigs[tx.Signature]; match {
			delete(m.seen, tx.Signature)
			continue
		}
		kept = append(kept, tx)
	}
	m.txs = kept
}

// Replace overwrites the entire pending set, used by the Mempool Poller
// (§4.8) to adopt the authoritative node's view.
func (m *Mempool) Replace(txs []chain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs = make([]chain.Transaction, len(txs))
	copy(m.txs, txs)
	m.seen = make(map[string]struct{}, len(txs))
	for _, tx := range m.txs {
		m.seen[tx.Signature] = struct{}{}
	}
}
