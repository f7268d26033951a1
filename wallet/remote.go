package wallet

import (
	"strings"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
	"github.com/tosterlolz/Owonero/rpcclient"
)

// Send builds a signed transfer of amount to to and submits it to client,
// returning the node's accept/reject verdict. Grounded on
// original_source/src/main.rs's run_send_mode, minus its peer-fallback
// retry loop (§1 scopes peer gossip out of the core).
func (w *Wallet) Send(client *rpcclient.Client, to string, amount int64) (rpcclient.SubmitResult, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return rpcclient.SubmitResult{}, owoerrors.New(owoerrors.InvalidAmount, "missing destination address")
	}
	if amount <= 0 {
		return rpcclient.SubmitResult{}, owoerrors.New(owoerrors.InvalidAmount, "amount must be > 0")
	}

	tx, err := w.CreateSignedTransaction(to, amount)
	if err != nil {
		return rpcclient.SubmitResult{}, err
	}
	return client.SubmitTx(tx)
}

// HistoryEntry is one line of a wallet's transaction history: a transaction
// plus the block that included it and the entry's sign relative to w.
type HistoryEntry struct {
	BlockIndex uint64
	Tx         chain.Transaction
	Direction  string // "in", "out", or "coinbase"
}

// TxHistory walks bc looking for every transaction crediting or debiting
// w's address, in chain order. Supplemented from the CLI surface named in
// the spec but not present in original_source (no Rust equivalent exists;
// built in the teacher's reporting idiom of scanning the full chain once).
func (w *Wallet) TxHistory(bc chain.Blockchain) []HistoryEntry {
	addr := strings.ToLower(strings.TrimSpace(w.Address))
	var entries []HistoryEntry

	for _, block := range bc.Chain {
		for _, tx := range block.Transactions {
			to := strings.ToLower(strings.TrimSpace(tx.To))
			from := strings.ToLower(strings.TrimSpace(tx.From))

			switch {
			case tx.IsCoinbase() && to == addr:
				entries = append(entries, HistoryEntry{BlockIndex: block.Index, Tx: tx, Direction: "coinbase"})
			case to == addr:
				entries = append(entries, HistoryEntry{BlockIndex: block.Index, Tx: tx, Direction: "in"})
			case from == addr:
				entries = append(entries, HistoryEntry{BlockIndex: block.Index, Tx: tx, Direction: "out"})
			}
		}
	}
	return entries
}
