// Package rpcclient implements the client side of §6.1's line-framed node
// RPC protocol, used by the Mining Worker Pool's Submitter/Tip Poller (C7,
// C8) and by the send-transaction CLI. Grounded on
// original_source/src/miner.rs's start_mining, which opens a fresh TCP
// connection per request rather than pooling — the same "connected once,
// used once" shape this client follows.
package rpcclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
	"github.com/tosterlolz/Owonero/retry"
)

// DefaultDialTimeout bounds how long a single request waits to connect.
const DefaultDialTimeout = 5 * time.Second

// Client talks to one node address, opening a new connection per call.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a Client targeting addr ("host:port").
func New(addr string) *Client {
	return &Client{addr: addr, timeout: DefaultDialTimeout}
}

// dialBackoff governs how many times call retries a failed dial (the only
// idempotent part of a request) before giving up, matching the teacher's
// util/retry-backed connection retries on its store clients.
var dialBackoff = []retry.Option{
	retry.WithRetryCount(3),
	retry.WithBackoffDuration(20 * time.Millisecond),
	retry.WithMaxBackoff(80 * time.Millisecond),
}

// call opens a connection, reads the greeting line, sends command followed
// by an optional body line, and returns the single response line. Only the
// dial is retried — once a command is written, a retry could resend a
// non-idempotent submitblock/submittx/submitshare against a half-completed
// connection, so a post-dial failure is returned immediately.
func (c *Client) call(command string, body string) (string, error) {
	var conn net.Conn
	dialErr := retry.Do(func() error {
		var err error
		conn, err = net.DialTimeout("tcp", c.addr, c.timeout)
		return err
	}, nil, append([]retry.Option{retry.WithMessage("dialing " + c.addr)}, dialBackoff...)...)
	if dialErr != nil {
		return "", owoerrors.New(owoerrors.Transport, "dialing %s", c.addr, dialErr)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	if _, err := reader.ReadString('\n'); err != nil {
		return "", owoerrors.New(owoerrors.Transport, "reading greeting from %s", c.addr, err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return "", owoerrors.New(owoerrors.Transport, "sending command to %s", c.addr, err)
	}
	if body != "" {
		if _, err := fmt.Fprintf(conn, "%s\n", body); err != nil {
			return "", owoerrors.New(owoerrors.Transport, "sending command body to %s", c.addr, err)
		}
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", owoerrors.New(owoerrors.Transport, "reading response from %s", c.addr, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// GetChain fetches the full authoritative blockchain.
func (c *Client) GetChain() (chain.Blockchain, error) {
	line, err := c.call("getchain", "")
	if err != nil {
		return chain.Blockchain{}, err
	}
	var bc chain.Blockchain
	if err := json.Unmarshal([]byte(line), &bc); err != nil {
		return chain.Blockchain{}, owoerrors.New(owoerrors.Transport, "decoding getchain response", err)
	}
	return bc, nil
}

// GetLatest fetches the authoritative tip block.
func (c *Client) GetLatest() (*chain.Block, error) {
	line, err := c.call("getlatest", "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(line) == "null" {
		return nil, nil
	}
	var b chain.Block
	if err := json.Unmarshal([]byte(line), &b); err != nil {
		return nil, owoerrors.New(owoerrors.Transport, "decoding getlatest response", err)
	}
	return &b, nil
}

// GetHeight fetches the tip index.
func (c *Client) GetHeight() (uint64, error) {
	line, err := c.call("getheight", "")
	if err != nil {
		return 0, err
	}
	h, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, owoerrors.New(owoerrors.Transport, "decoding getheight response", err)
	}
	return h, nil
}

// GetBlock fetches the block at index i.
func (c *Client) GetBlock(i uint64) (chain.Block, error) {
	line, err := c.call(fmt.Sprintf("getblock %d", i), "")
	if err != nil {
		return chain.Block{}, err
	}
	if strings.HasPrefix(line, "error:") {
		return chain.Block{}, owoerrors.New(owoerrors.Transport, "%s", line)
	}
	var b chain.Block
	if err := json.Unmarshal([]byte(line), &b); err != nil {
		return chain.Block{}, owoerrors.New(owoerrors.Transport, "decoding getblock response", err)
	}
	return b, nil
}

// GetMempool fetches the authoritative pending transaction set.
func (c *Client) GetMempool() ([]chain.Transaction, error) {
	line, err := c.call("getmempool", "")
	if err != nil {
		return nil, err
	}
	var txs []chain.Transaction
	if err := json.Unmarshal([]byte(line), &txs); err != nil {
		return nil, owoerrors.New(owoerrors.Transport, "decoding getmempool response", err)
	}
	return txs, nil
}

// GetPeers fetches the list of known peer addresses.
func (c *Client) GetPeers() ([]string, error) {
	line, err := c.call("getpeers", "")
	if err != nil {
		return nil, err
	}
	var peers []string
	if err := json.Unmarshal([]byte(line), &peers); err != nil {
		return nil, owoerrors.New(owoerrors.Transport, "decoding getpeers response", err)
	}
	return peers, nil
}

// SubmitResult is the parsed form of an "ok" / "rejected: <reason>" line.
type SubmitResult struct {
	OK     bool
	Reason string
}

func parseSubmitResult(line string) SubmitResult {
	if line == "ok" {
		return SubmitResult{OK: true}
	}
	return SubmitResult{OK: false, Reason: strings.TrimPrefix(line, "rejected: ")}
}

// SubmitBlock submits a mined candidate block.
func (c *Client) SubmitBlock(b chain.Block) (SubmitResult, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return SubmitResult{}, owoerrors.New(owoerrors.Transport, "encoding block", err)
	}
	line, err := c.call("submitblock", string(data))
	if err != nil {
		return SubmitResult{}, err
	}
	return parseSubmitResult(line), nil
}

// SubmitTx submits a signed transaction.
func (c *Client) SubmitTx(tx chain.Transaction) (SubmitResult, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return SubmitResult{}, owoerrors.New(owoerrors.Transport, "encoding transaction", err)
	}
	line, err := c.call("submittx", string(data))
	if err != nil {
		return SubmitResult{}, err
	}
	return parseSubmitResult(line), nil
}

// Share is a pool-mode share submission.
type Share struct {
	Wallet   string      `json:"wallet"`
	Nonce    uint32      `json:"nonce"`
	Attempts uint64      `json:"attempts"`
	Block    chain.Block `json:"block"`
}

// SubmitShare submits a pool share.
func (c *Client) SubmitShare(s Share) (SubmitResult, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return SubmitResult{}, owoerrors.New(owoerrors.Transport, "encoding share", err)
	}
	line, err := c.call("submitshare", string(data))
	if err != nil {
		return SubmitResult{}, err
	}
	return parseSubmitResult(line), nil
}

// StatsUpdate is a wallet hashrate report, sent periodically by a miner.
type StatsUpdate struct {
	Wallet    string  `json:"wallet"`
	Hashrate  float64 `json:"hashrate"`
	Timestamp int64   `json:"timestamp"`
}

// UpdateStats reports a wallet's current hashrate.
func (c *Client) UpdateStats(s StatsUpdate) error {
	data, err := json.Marshal(s)
	if err != nil {
		return owoerrors.New(owoerrors.Transport, "encoding stats update", err)
	}
	_, err = c.call("updatestats", string(data))
	return err
}

// WalletHashrate is the parsed response of getwallethashrate.
type WalletHashrate struct {
	Wallet     string  `json:"wallet"`
	Hashrate   float64 `json:"hashrate"`
	LastUpdate int64   `json:"last_update"`
}

// GetWalletHashrate fetches a single wallet's reported hashrate.
func (c *Client) GetWalletHashrate(address string) (WalletHashrate, error) {
	line, err := c.call("getwallethashrate "+address, "")
	if err != nil {
		return WalletHashrate{}, err
	}
	var w WalletHashrate
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return WalletHashrate{}, owoerrors.New(owoerrors.Transport, "decoding getwallethashrate response", err)
	}
	return w, nil
}

// GetNetworkHashrate fetches the aggregate network hashrate.
func (c *Client) GetNetworkHashrate() (float64, error) {
	line, err := c.call("getnetworkhashrate", "")
	if err != nil {
		return 0, err
	}
	var resp struct {
		NetworkHashrate float64 `json:"network_hashrate"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return 0, owoerrors.New(owoerrors.Transport, "decoding getnetworkhashrate response", err)
	}
	return resp.NetworkHashrate, nil
}
