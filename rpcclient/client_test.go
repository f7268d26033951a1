package rpcclient

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
)

func blockFixture() chain.Block {
	return chain.Block{
		Index:     1,
		Timestamp: time.Now().UTC(),
		PrevHash:  "aa",
		Hash:      "00bb",
		Nonce:     7,
	}
}

// fakeServer accepts connections, sends the greeting on each, then responds
// to each line with the scripted response for that command.
func fakeServer(t *testing.T, responses map[string]string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				conn.Write([]byte("owonero-daemon height=0\n"))
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					cmd := strings.TrimSpace(line)
					resp, ok := responses[cmd]
					if !ok {
						// commands with arguments: key by first word (a body
						// line is read as its own line and gets no scripted reply)
						fields := strings.Fields(cmd)
						if len(fields) > 0 {
							resp, ok = responses[fields[0]]
						}
					}
					if !ok {
						resp = "unknown command"
					}
					conn.Write([]byte(resp + "\n"))
				}
			}()
		}
	}()
	return ln.Addr().String()
}

func TestGetHeight(t *testing.T) {
	addr := fakeServer(t, map[string]string{"getheight": "42"})
	c := New(addr)
	h, err := c.GetHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), h)
}

func TestGetLatestNull(t *testing.T) {
	addr := fakeServer(t, map[string]string{"getlatest": "null"})
	c := New(addr)
	b, err := c.GetLatest()
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSubmitBlockParsesRejection(t *testing.T) {
	addr := fakeServer(t, map[string]string{"submitblock": "rejected: PrevHash mismatch: expected a got b"})
	c := New(addr)
	res, err := c.SubmitBlock(blockFixture())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "PrevHash")
}

func TestSubmitBlockParsesOK(t *testing.T) {
	addr := fakeServer(t, map[string]string{"submitblock": "ok"})
	c := New(addr)
	res, err := c.SubmitBlock(blockFixture())
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestGetNetworkHashrate(t *testing.T) {
	addr := fakeServer(t, map[string]string{"getnetworkhashrate": `{"network_hashrate": 123.5}`})
	c := New(addr)
	rate, err := c.GetNetworkHashrate()
	require.NoError(t, err)
	assert.Equal(t, 123.5, rate)
}

func TestDialFailureReturnsTransportError(t *testing.T) {
	c := New("127.0.0.1:1")
	c.timeout = 0
	_, err := c.GetHeight()
	require.Error(t, err)
	code, ok := owoerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, owoerrors.Transport, code)
}
