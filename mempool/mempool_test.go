package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
	"github.com/tosterlolz/Owonero/signing"
)

func fundedChain(t *testing.T, address string, amount int64) chain.Blockchain {
	t.Helper()
	return chain.Blockchain{Chain: []chain.Block{
		{Index: 0, Transactions: []chain.Transaction{
			{From: chain.CoinbaseSender, To: address, Amount: amount},
		}},
	}}
}

func signedTx(t *testing.T, from, to string, amount int64) (string, chain.Transaction) {
	t.Helper()
	priv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	pubHex := signing.PublicKeyHex(&priv.PublicKey)
	sig, err := signing.Sign(priv, from, to, amount)
	require.NoError(t, err)
	return pubHex, chain.Transaction{From: from, PubKey: pubHex, To: to, Amount: amount, Signature: sig}
}

func TestSubmitTxAcceptsValidTransaction(t *testing.T) {
	m := New()
	_, tx := signedTx(t, "alice", "bob", 10)
	bc := fundedChain(t, "alice", 100)

	require.NoError(t, m.SubmitTx(tx, bc))
	assert.Len(t, m.Snapshot(), 1)
}

func TestSubmitTxRejectsInvalidSignature(t *testing.T) {
	m := New()
	_, tx := signedTx(t, "alice", "bob", 10)
	tx.Signature = "00"
	bc := fundedChain(t, "alice", 100)

	err := m.SubmitTx(tx, bc)
	require.Error(t, err)
	code, _ := owoerrors.CodeOf(err)
	assert.Equal(t, owoerrors.InvalidSignature, code)
}

func TestSubmitTxRejectsNonPositiveAmount(t *testing.T) {
	m := New()
	_, tx := signedTx(t, "alice", "bob", 0)
	bc := fundedChain(t, "alice", 100)

	err := m.SubmitTx(tx, bc)
	require.Error(t, err)
	code, _ := owoerrors.CodeOf(err)
	assert.Equal(t, owoerrors.InvalidAmount, code)
}

func TestSubmitTxInsufficientFundsSecondTransaction(t *testing.T) {
	m := New()
	bc := fundedChain(t, "alice", 100)

	_, tx1 := signedTx(t, "alice", "bob", 60)
	require.NoError(t, m.SubmitTx(tx1, bc))

	_, tx2 := signedTx(t, "alice", "carol", 60)
	err := m.SubmitTx(tx2, bc)
	require.Error(t, err)
	code, _ := owoerrors.CodeOf(err)
	assert.Equal(t, owoerrors.InsufficientFunds, code)
}

func TestSubmitTxIdempotentBySignature(t *testing.T) {
	m := New()
	bc := fundedChain(t, "alice", 100)
	_, tx := signedTx(t, "alice", "bob", 10)

	require.NoError(t, m.SubmitTx(tx, bc))
	require.NoError(t, m.SubmitTx(tx, bc))
	assert.Len(t, m.Snapshot(), 1)
}

func TestRemoveIncludedDropsMatchingSignatures(t *testing.T) {
	m := New()
	bc := fundedChain(t, "alice", 100)
	_, tx := signedTx(t, "alice", "bob", 10)
	require.NoError(t, m.SubmitTx(tx, bc))

	m.RemoveIncluded([]chain.Transaction{tx})
	assert.Empty(t, m.Snapshot())
}

func TestCoinbaseExemptFromBalanceCheck(t *testing.T) {
	m := New()
	bc := chain.Blockchain{}
	tx := chain.Transaction{From: chain.CoinbaseSender, To: "miner", Amount: 1000}
	require.NoError(t, m.SubmitTx(tx, bc))
}

func TestReplaceOverwritesPendingSet(t *testing.T) {
	m := New()
	bc := fundedChain(t, "alice", 100)
	_, tx1 := signedTx(t, "alice", "bob", 10)
	require.NoError(t, m.SubmitTx(tx1, bc))

	_, tx2 := signedTx(t, "alice", "carol", 20)
	m.Replace([]chain.Transaction{tx2})

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, tx2.Signature, snap[0].Signature)
}
