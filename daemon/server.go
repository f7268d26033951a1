// Package daemon implements the node's line-framed TCP RPC protocol (§6.1):
// the greeting, the full command set, peer tracking, pool share bookkeeping,
// and wallet hashrate reporting. Grounded on
// original_source/src/daemon.rs's run_daemon/handle_connection, adapted from
// tokio's async per-connection task model to a goroutine-per-connection
// model over net.Listener/net.Conn.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/mempool"
	"github.com/tosterlolz/Owonero/ulog"
)

// Server is the node's RPC front end: a goroutine-per-connection TCP server
// backed by a chain.Store, a mempool.Mempool, and the peer/share/hashrate
// bookkeeping the protocol table in §6.1 names.
type Server struct {
	store          *chain.Store
	mp             *mempool.Mempool
	peers          *PeerManager
	shares         *shareTracker
	hashrates      *HashrateStore
	log            ulog.Logger
	blockchainPath string
}

// New builds a Server. blockchainPath is where the chain is persisted after
// every accepted submitblock, matching §6.2.
func New(store *chain.Store, mp *mempool.Mempool, blockchainPath string, log ulog.Logger) *Server {
	return &Server{
		store:          store,
		mp:             mp,
		peers:          NewPeerManager(),
		shares:         newShareTracker(),
		hashrates:      newHashrateStore(),
		log:            log.With("daemon"),
		blockchainPath: blockchainPath,
	}
}

// Hashrates exposes the server's live wallet hashrate bookkeeping, shared
// with the HTTP stats endpoint so both transports read the same data.
func (s *Server) Hashrates() *HashrateStore {
	return s.hashrates
}

// AddPeer seeds addr into the server's peer list, used at start-up to load
// the --peers / config.json peer list before any connection has arrived.
func (s *Server) AddPeer(addr string) {
	s.peers.AddPeer(addr)
}

// ListenAndServe accepts connections on port until ctx is cancelled. A
// transient accept error is logged and retried after a short backoff rather
// than torn down the whole daemon, matching the original's accept-loop
// comment.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("binding daemon port %d: %w", port, err)
	}
	s.log.Info().Int("port", port).Msg("daemon listening")

	stop := make(chan struct{})
	s.hashrates.Start(stop)

	go func() {
		<-ctx.Done()
		close(stop)
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.Warn().Err(err).Msg("accept error")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	writer := bufio.NewWriter(conn)
	height := s.store.Height()
	fmt.Fprintf(writer, "owonero-daemon height=%d\n", height)
	writer.Flush()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		resp := s.dispatch(line, scanner, conn.RemoteAddr().String())
		fmt.Fprintf(writer, "%s\n", resp)
		if err := writer.Flush(); err != nil {
			return
		}
	}
}
