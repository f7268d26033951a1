package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/httpapi"
	"github.com/tosterlolz/Owonero/mempool"
	"github.com/tosterlolz/Owonero/rxhash"
	"github.com/tosterlolz/Owonero/ulog"
)

type fakeHashrates struct {
	wallet  float64
	network float64
}

func (f fakeHashrates) WalletHashrate(address string) (float64, int64) { return f.wallet, 1000 }
func (f fakeHashrates) NetworkHashrate() float64                       { return f.network }

func testHasher() *rxhash.Hasher {
	return rxhash.NewHasher(rxhash.WithScratchpadSize(1024), rxhash.WithIterations(8))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := chain.NewStore(testHasher(), ulog.New("test"))
	mp := mempool.New()
	mp.SubmitTx(chain.Transaction{From: chain.CoinbaseSender, To: "bob", Amount: 10}, store.Chain())

	srv := httpapi.New(store, mp, fakeHashrates{wallet: 42.0, network: 100.0}, ulog.New("test"))
	return httptest.NewServer(srv.Handler())
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHeight(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	var body map[string]uint64
	getJSON(t, ts.URL+"/height", &body)
	assert.Equal(t, uint64(0), body["height"])
}

func TestChain(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	var bc chain.Blockchain
	getJSON(t, ts.URL+"/chain", &bc)
	require.Len(t, bc.Chain, 1)
	assert.Equal(t, uint64(0), bc.Chain[0].Index)
}

func TestMempool(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	var txs []chain.Transaction
	getJSON(t, ts.URL+"/mempool", &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, "bob", txs[0].To)
}

func TestHashrate(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	var body map[string]float64
	getJSON(t, ts.URL+"/hashrate", &body)
	assert.Equal(t, 100.0, body["network_hashrate"])
}

func TestWalletHashrate(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	var body map[string]interface{}
	getJSON(t, ts.URL+"/wallet/0xAAAA", &body)
	assert.Equal(t, "0xAAAA", body["wallet"])
	assert.Equal(t, 42.0, body["hashrate"])
}
