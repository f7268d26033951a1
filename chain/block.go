// Package chain implements the Chain Store (C3) and Difficulty Oracle (C4):
// the Block/Transaction/Blockchain data model, genesis construction, block
// and chain validation, persistence, and dynamic difficulty. It is grounded
// on original_source/src/blockchain.rs, generalized from its synchronous,
// globally-locked Rust struct into a Go type behind a small mutex-guarded
// store, the way the teacher's stores/utxo/memory package wraps a plain map.
package chain

import (
	"encoding/json"
	"time"

	"github.com/tosterlolz/Owonero/rxhash"
	"github.com/tosterlolz/Owonero/signing"
)

// CoinbaseSender is the reserved `from` sentinel denoting block-reward
// issuance with no signing input.
const CoinbaseSender = "coinbase"

// GenesisTimestamp is the fixed instant recorded on the genesis block.
var GenesisTimestamp = time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC)

// Transaction is a transfer of amount milli-units from From to To, signed
// by the keypair identified by PubKey (falling back to From for legacy
// records with an empty PubKey).
type Transaction struct {
	From      string `json:"from"`
	PubKey    string `json:"pub_key"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Signature string `json:"signature"`
}

// IsCoinbase reports whether t is a block-reward issuance rather than a
// user-signed transfer.
func (t Transaction) IsCoinbase() bool {
	return t.From == CoinbaseSender
}

// VerifySignature checks t's signature against PubKey, falling back to From
// when PubKey is empty (legacy records), per §3's invariant. Coinbase
// transactions always verify true without inspecting Signature.
func (t Transaction) VerifySignature() bool {
	if t.IsCoinbase() {
		return true
	}
	key := t.PubKey
	if key == "" {
		key = t.From
	}
	return signing.Verify(key, t.From, t.To, t.Amount, t.Signature)
}

// Block is one entry in the chain: an ordered set of transactions sealed by
// a PoW digest over its header fields.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PrevHash     string        `json:"prev_hash"`
	Hash         string        `json:"hash"`
	Nonce        uint32        `json:"nonce"`
	Difficulty   uint32        `json:"difficulty"`
}

// headerPreimage is the exact field subset and order hashed by the PoW
// Hasher — Hash and Difficulty are deliberately excluded (§4.1).
type headerPreimage struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PrevHash     string        `json:"prev_hash"`
	Nonce        uint32        `json:"nonce"`
}

// Preimage returns b's canonical hash preimage, the JSON encoding of its
// header fields in declaration order.
func (b Block) Preimage() headerPreimage {
	return headerPreimage{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		PrevHash:     b.PrevHash,
		Nonce:        b.Nonce,
	}
}

// Blockchain is the persisted document shape: the ordered chain plus the
// target block interval used by the Difficulty Oracle.
type Blockchain struct {
	Chain           []Block `json:"chain"`
	TargetBlockTime int64   `json:"target_block_time"`
}

// DefaultTargetBlockTime matches the original implementation's 30-second
// target.
const DefaultTargetBlockTime = 30

// ComputeHash computes b's PoW digest with hasher, over the canonical
// JSON encoding of b.Preimage().
func ComputeHash(hasher *rxhash.Hasher, b Block) string {
	data, err := json.Marshal(b.Preimage())
	if err != nil {
		// Preimage is a fixed, fully-exported struct of JSON-marshalable
		// fields; a marshal failure here means a field was changed to an
		// unmarshalable type, a programming error rather than a runtime one.
		panic("chain: failed to marshal header preimage: " + err.Error())
	}
	return hasher.SumHex(data)
}

// Genesis builds the fixed genesis block, hashing it with hasher.
func Genesis(hasher *rxhash.Hasher) Block {
	b := Block{
		Index: 0,
		Timestamp: GenesisTimestamp,
		Transactions: []Transaction{{
			From:   "genesis",
			PubKey: "",
			To:     "network",
			Amount: 0,
		}},
		PrevHash:   "",
		Nonce:      0,
		Difficulty: 1,
	}
	b.Hash = ComputeHash(hasher, b)
	return b
}

// BlockReward is the issuance policy: a flat 1000 milli-units per block,
// deterministic in height as §9's open question requires. A halving
// schedule would only need to change this function.
func BlockReward(height uint64) int64 {
	return 1000
}
