package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/mempool"
	"github.com/tosterlolz/Owonero/rxhash"
	"github.com/tosterlolz/Owonero/signing"
	"github.com/tosterlolz/Owonero/ulog"
)

func testHasher() *rxhash.Hasher {
	return rxhash.NewHasher(rxhash.WithScratchpadSize(1024), rxhash.WithIterations(8))
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func startTestServer(t *testing.T) (addr string, store *chain.Store) {
	t.Helper()
	hasher := testHasher()
	store = chain.NewStore(hasher, ulog.New("test"))
	mp := mempool.New()
	path := filepath.Join(t.TempDir(), "chain.json")
	srv := New(store, mp, path, ulog.New("test"))

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			// give ListenAndServe a moment to bind before signalling ready
			time.Sleep(20 * time.Millisecond)
			close(ready)
		}()
		srv.ListenAndServe(ctx, port)
	}()
	t.Cleanup(cancel)
	<-ready

	return fmt.Sprintf("127.0.0.1:%d", port), store
}

type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	reader := bufio.NewReader(conn)
	_, err = reader.ReadString('\n') // greeting
	require.NoError(t, err)
	return &testClient{conn: conn, reader: reader}
}

func (c *testClient) send(lines ...string) string {
	for _, l := range lines {
		fmt.Fprintf(c.conn, "%s\n", l)
	}
	resp, _ := c.reader.ReadString('\n')
	return strings.TrimSpace(resp)
}

func (c *testClient) close() { c.conn.Close() }

func TestGetHeightAndGetLatest(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	assert.Equal(t, "0", c.send("getheight"))

	var tip chain.Block
	require.NoError(t, json.Unmarshal([]byte(c.send("getlatest")), &tip))
	assert.Equal(t, uint64(0), tip.Index)
}

func TestSubmitBlockAcceptsValidExtension(t *testing.T) {
	addr, store := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	block := mineNext(t, store, "0xAAAA")
	data, err := json.Marshal(block)
	require.NoError(t, err)

	resp := c.send("submitblock", string(data))
	assert.Equal(t, "ok", resp)
	assert.Equal(t, uint64(1), store.Height())
}

func TestSubmitBlockRejectsBadPrevHash(t *testing.T) {
	addr, store := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	block := mineNext(t, store, "0xAAAA")
	block.PrevHash = "not-the-tip"
	block.Hash = chain.ComputeHash(testHasher(), block)
	data, err := json.Marshal(block)
	require.NoError(t, err)

	resp := c.send("submitblock", string(data))
	assert.Contains(t, resp, "rejected:")
	assert.Contains(t, resp, "PrevHash")
}

func TestSubmitTxRoundTrip(t *testing.T) {
	addr, store := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	priv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	pubHex := signing.PublicKeyHex(&priv.PublicKey)

	// fund the sender via a mined block so the mempool balance check passes.
	block := mineNext(t, store, pubHex)
	require.NoError(t, store.Append(block, store.Difficulty(), false))

	sig, err := signing.Sign(priv, pubHex, "bob", 10)
	require.NoError(t, err)
	tx := chain.Transaction{From: pubHex, PubKey: pubHex, To: "bob", Amount: 10, Signature: sig}

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	resp := c.send("submittx", string(data))
	assert.Equal(t, "ok", resp)

	mpData := c.send("getmempool")
	var txs []chain.Transaction
	require.NoError(t, json.Unmarshal([]byte(mpData), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "bob", txs[0].To)
}

func TestSubmitShareNeverExtendsChain(t *testing.T) {
	addr, store := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	block := mineNext(t, store, "0xAAAA")
	sh := share{Wallet: "0xAAAA", Nonce: block.Nonce, Attempts: 42, Block: block}
	data, err := json.Marshal(sh)
	require.NoError(t, err)

	resp := c.send("submitshare", string(data))
	assert.Equal(t, "ok", resp)
	assert.Equal(t, uint64(0), store.Height())
}

func TestUpdateStatsAndWalletHashrate(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	upd := statsUpdate{Wallet: "0xAAAA", Hashrate: 123.4, Timestamp: time.Now().Unix()}
	data, err := json.Marshal(upd)
	require.NoError(t, err)
	assert.Equal(t, "ok", c.send("updatestats", string(data)))

	resp := c.send("getwallethashrate 0xAAAA")
	var hr map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp), &hr))
	assert.InDelta(t, 123.4, hr["hashrate"], 0.01)

	netResp := c.send("getnetworkhashrate")
	var networkStats map[string]float64
	require.NoError(t, json.Unmarshal([]byte(netResp), &networkStats))
	assert.InDelta(t, 123.4, networkStats["network_hashrate"], 0.01)
}

func TestUnknownCommand(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	defer c.close()
	assert.Equal(t, "unknown command", c.send("bogus"))
}

func TestGetPeersTracksRemoteAddr(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	defer c.close()

	resp := c.send("getpeers")
	var peers []string
	require.NoError(t, json.Unmarshal([]byte(resp), &peers))
	assert.Len(t, peers, 1)
}

// mineNext builds and seals a valid next block crediting reward, using the
// same low-cost hasher the test server runs with.
func mineNext(t *testing.T, store *chain.Store, rewardTo string) chain.Block {
	t.Helper()
	hasher := testHasher()
	tip := store.Tip()
	difficulty := store.Difficulty()

	block := chain.Block{
		Index:     tip.Index + 1,
		Timestamp: time.Now().UTC(),
		Transactions: []chain.Transaction{
			{From: chain.CoinbaseSender, To: rewardTo, Amount: chain.BlockReward(tip.Index + 1)},
		},
		PrevHash:   tip.Hash,
		Difficulty: difficulty,
	}

	for nonce := uint32(0); ; nonce++ {
		block.Nonce = nonce
		block.Hash = chain.ComputeHash(hasher, block)
		if rxhash.MeetsDifficulty(block.Hash, difficulty) {
			return block
		}
		if nonce > 1_000_000 {
			t.Fatalf("failed to mine a block at difficulty %d within bound", difficulty)
		}
	}
}
