package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
)

func TestLoadOrCreateGeneratesThenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	w1, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, w1.Address, w1.PubKey)

	w2, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, w1.Address, w2.Address)
	assert.Equal(t, w1.PrivKey, w2.PrivKey)
}

func TestBalanceSumsCreditsAndDebits(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	bc := chain.Blockchain{Chain: []chain.Block{
		{Index: 0, Transactions: []chain.Transaction{
			{From: chain.CoinbaseSender, To: w.Address, Amount: 1000},
		}},
		{Index: 1, Transactions: []chain.Transaction{
			{From: w.Address, To: "bob", Amount: 300},
		}},
	}}

	assert.Equal(t, int64(700), w.Balance(bc))
}

func TestBalanceIsCaseInsensitiveAndTrimmed(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	bc := chain.Blockchain{Chain: []chain.Block{
		{Transactions: []chain.Transaction{
			{From: chain.CoinbaseSender, To: "  " + w.Address + "  ", Amount: 500},
		}},
	}}
	assert.Equal(t, int64(500), w.Balance(bc))
}

func TestCreateSignedTransactionVerifies(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	tx, err := w.CreateSignedTransaction("bob", 42)
	require.NoError(t, err)
	assert.True(t, tx.VerifySignature())
}

func TestCoinbaseTransactionAlwaysVerifies(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	tx := w.CoinbaseTransaction(1)
	assert.True(t, tx.VerifySignature())
	assert.Equal(t, int64(1000), tx.Amount)
}
