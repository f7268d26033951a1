// Package httpapi implements the read-only HTTP/JSON stats endpoint (§6.7):
// a thin net/http front end over the same chain.Store, mempool.Mempool, and
// wallet hashrate bookkeeping the TCP daemon serves, for dashboards and
// curl-friendly inspection. Deliberately out of §1's core scope, so it is
// built on stdlib http.ServeMux rather than a routing framework — see
// DESIGN.md for why no pack dependency fits a five-route read-only mux.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/mempool"
	"github.com/tosterlolz/Owonero/ulog"
)

// HashrateSource reports per-wallet and network-wide hashrate. The daemon's
// HashrateStore satisfies a superset of this interface.
type HashrateSource interface {
	WalletHashrate(address string) (hashrate float64, lastUpdate int64)
	NetworkHashrate() float64
}

// Server is the HTTP stats front end.
type Server struct {
	store     *chain.Store
	mp        *mempool.Mempool
	hashrates HashrateSource
	log       ulog.Logger
}

// New builds a Server and its handler mux.
func New(store *chain.Store, mp *mempool.Mempool, hashrates HashrateSource, log ulog.Logger) *Server {
	return &Server{store: store, mp: mp, hashrates: hashrates, log: log.With("httpapi")}
}

// Handler returns the configured http.Handler, exposed separately from
// ListenAndServe so callers (or tests) can mount it behind httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /height", s.handleHeight)
	mux.HandleFunc("GET /chain", s.handleChain)
	mux.HandleFunc("GET /mempool", s.handleMempool)
	mux.HandleFunc("GET /hashrate", s.handleHashrate)
	mux.HandleFunc("GET /wallet/{address}", s.handleWalletHashrate)
	return mux
}

// ListenAndServe binds and serves on port, blocking until the server
// returns an error (including http.ErrServerClosed on graceful Shutdown).
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info().Int("port", port).Msg("http stats endpoint listening")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]uint64{"height": s.store.Height()})
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Chain())
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mp.Snapshot())
}

func (s *Server) handleHashrate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]float64{"network_hashrate": s.hashrates.NetworkHashrate()})
}

func (s *Server) handleWalletHashrate(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	hashrate, lastUpdate := s.hashrates.WalletHashrate(address)
	writeJSON(w, map[string]interface{}{
		"wallet":      address,
		"hashrate":    hashrate,
		"last_update": lastUpdate,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}
