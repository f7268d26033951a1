package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
)

func TestTxHistoryClassifiesDirections(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	bc := chain.Blockchain{Chain: []chain.Block{
		{Index: 0, Transactions: []chain.Transaction{
			{From: chain.CoinbaseSender, To: w.Address, Amount: 1000},
		}},
		{Index: 1, Transactions: []chain.Transaction{
			{From: w.Address, To: "bob", Amount: 300},
			{From: "alice", To: w.Address, Amount: 50},
		}},
	}}

	entries := w.TxHistory(bc)
	require.Len(t, entries, 3)
	assert.Equal(t, "coinbase", entries[0].Direction)
	assert.Equal(t, "out", entries[1].Direction)
	assert.Equal(t, "in", entries[2].Direction)
}

func TestSendRejectsNonPositiveAmount(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	_, err = w.Send(nil, "bob", 0)
	require.Error(t, err)
}

func TestSendRejectsEmptyDestination(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	_, err = w.Send(nil, "  ", 10)
	require.Error(t, err)
}
