// Package wallet implements the Wallet Store (C9): loading or creating the
// keypair persisted at wallet.json, computing balances, and building signed
// transactions. Grounded on original_source/src/wallet.rs, adapted for the
// spec's address/public-key collapse (§9): unlike the original's
// timestamp-derived "OWO…" address, this wallet's address IS its hex public
// key, per spec.md's explicit non-goal of separate address derivation.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"os"
	"strings"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
	"github.com/tosterlolz/Owonero/signing"
)

// Wallet is the persisted keypair plus the node address it last used.
type Wallet struct {
	Address     string `json:"address"`
	PubKey      string `json:"pub_key"`
	PrivKey     string `json:"priv_key"`
	NodeAddress string `json:"node_address,omitempty"`

	priv *ecdsa.PrivateKey
}

// New generates a fresh keypair and derives the wallet's address from it.
func New() (*Wallet, error) {
	priv, err := signing.GenerateKeyPair()
	if err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "generating wallet keypair", err)
	}

	pubHex := signing.PublicKeyHex(&priv.PublicKey)
	privHex, err := signing.PrivateKeyHex(priv)
	if err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "encoding wallet private key", err)
	}

	return &Wallet{
		Address: pubHex,
		PubKey:  pubHex,
		PrivKey: privHex,
		priv:    priv,
	}, nil
}

// LoadOrCreate reads wallet.json at path, creating and persisting a new
// wallet if the file does not exist.
func LoadOrCreate(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		w, err := New()
		if err != nil {
			return nil, err
		}
		if err := w.Save(path); err != nil {
			return nil, err
		}
		return w, nil
	}
	if err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "reading wallet file", err)
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "parsing wallet JSON", err)
	}

	priv, err := signing.ParsePrivateKeyHex(w.PrivKey)
	if err != nil {
		return nil, owoerrors.New(owoerrors.Corrupt, "decoding wallet private key", err)
	}
	w.priv = priv
	return &w, nil
}

// Save writes the wallet to path as pretty JSON.
func (w *Wallet) Save(path string) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return owoerrors.New(owoerrors.Corrupt, "serializing wallet", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return owoerrors.New(owoerrors.Corrupt, "writing wallet file", err)
	}
	return nil
}

// PrivateKey exposes the parsed signing key. Coinbase transactions built by
// CoinbaseTransaction are not signed with it.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.priv
}

// Balance scans bc summing +amount into every transaction crediting this
// wallet's address and -amount out of every non-coinbase transaction
// debiting it, matching §4.5's case-insensitive, trimmed comparison.
func (w *Wallet) Balance(bc chain.Blockchain) int64 {
	var balance int64
	addr := strings.ToLower(strings.TrimSpace(w.Address))
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

// CreateSignedTransaction builds and signs a transfer of amount to to.
func (w *Wallet) CreateSignedTransaction(to string, amount int64) (chain.Transaction, error) {
	tx := chain.Transaction{
		From:   w.Address,
		PubKey: w.PubKey,
		To:     to,
		Amount: amount,
	}

	sig, err := signing.Sign(w.priv, tx.From, tx.To, tx.Amount)
	if err != nil {
		return chain.Transaction{}, owoerrors.New(owoerrors.Corrupt, "signing transaction", err)
	}
	tx.Signature = sig
	return tx, nil
}

// CoinbaseTransaction builds the unsigned reward transaction a miner
// prepends to every candidate block. The validator never checks coinbase
// signatures (§4.3), so the signature field is left empty to match the wire
// format every other implementation in this network emits.
func (w *Wallet) CoinbaseTransaction(height uint64) chain.Transaction {
	return chain.Transaction{
		From:   chain.CoinbaseSender,
		PubKey: w.PubKey,
		To:     w.Address,
		Amount: chain.BlockReward(height),
	}
}
