package daemon

import (
	"bufio"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tosterlolz/Owonero/chain"
	owoerrors "github.com/tosterlolz/Owonero/errors"
)

// share is the wire shape of a submitshare body, matching §6.1's table.
type share struct {
	Wallet   string      `json:"wallet"`
	Nonce    uint32      `json:"nonce"`
	Attempts uint64      `json:"attempts"`
	Block    chain.Block `json:"block"`
}

// statsUpdate is the wire shape of an updatestats body.
type statsUpdate struct {
	Wallet    string  `json:"wallet"`
	Hashrate  float64 `json:"hashrate"`
	Timestamp int64   `json:"timestamp"`
}

// dispatch handles one command line (plus any body line it needs to read
// off scanner) and returns the single response line to write back,
// following §7's "ok" / "rejected: <reason>" convention.
func (s *Server) dispatch(line string, scanner *bufio.Scanner, remoteAddr string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "unknown command"
	}
	cmd := fields[0]

	switch cmd {
	case "getchain":
		data, err := json.Marshal(s.store.Chain())
		if err != nil {
			return "error: encoding chain"
		}
		return string(data)

	case "getheight":
		return strconv.FormatUint(s.store.Height(), 10)

	case "getlatest":
		data, err := json.Marshal(s.store.Tip())
		if err != nil {
			return "error: encoding tip"
		}
		return string(data)

	case "getblock":
		arg := ""
		if len(fields) >= 2 {
			arg = fields[1]
		} else if body, ok := readBody(scanner); ok {
			arg = strings.TrimSpace(body)
		} else {
			return "error: missing block index"
		}
		idx, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return "error: invalid block index"
		}
		b, ok := s.store.BlockAt(idx)
		if !ok {
			return "error: no such block"
		}
		data, err := json.Marshal(b)
		if err != nil {
			return "error: encoding block"
		}
		return string(data)

	case "getmempool":
		data, err := json.Marshal(s.mp.Snapshot())
		if err != nil {
			return "error: encoding mempool"
		}
		return string(data)

	case "getpeers":
		s.peers.AddPeer(remoteAddr)
		data, err := json.Marshal(s.peers.Peers())
		if err != nil {
			return "error: encoding peers"
		}
		return string(data)

	case "submitblock":
		body, ok := readBody(scanner)
		if !ok {
			return "error: missing block body"
		}
		return s.handleSubmitBlock(body)

	case "submittx":
		body, ok := readBody(scanner)
		if !ok {
			return "error: missing transaction body"
		}
		return s.handleSubmitTx(body)

	case "submitshare":
		body, ok := readBody(scanner)
		if !ok {
			return "error: missing share body"
		}
		return s.handleSubmitShare(body)

	case "updatestats":
		body, ok := readBody(scanner)
		if !ok {
			return "error: missing stats body"
		}
		return s.handleUpdateStats(body)

	case "getwallethashrate":
		addr := ""
		if len(fields) >= 2 {
			addr = fields[1]
		} else if body, ok := readBody(scanner); ok {
			addr = strings.TrimSpace(body)
		}
		hashrate, lastUpdate := s.hashrates.WalletHashrate(addr)
		data, _ := json.Marshal(map[string]interface{}{
			"wallet":        addr,
			"hashrate":      hashrate,
			"last_update":   lastUpdate,
			"share_credits": s.shares.creditsFor(addr),
		})
		return string(data)

	case "getnetworkhashrate":
		data, _ := json.Marshal(map[string]float64{"network_hashrate": s.hashrates.NetworkHashrate()})
		return string(data)

	default:
		return "unknown command"
	}
}

func readBody(scanner *bufio.Scanner) (string, bool) {
	if !scanner.Scan() {
		return "", false
	}
	return scanner.Text(), true
}

func (s *Server) handleSubmitBlock(body string) string {
	var b chain.Block
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		return "rejected: malformed block JSON"
	}

	difficulty := s.store.Difficulty()
	if err := s.store.Append(b, difficulty, false); err != nil {
		s.log.Debug().Err(err).Msg("submitblock rejected")
		return "rejected: " + rejectionReason(err)
	}

	if err := s.store.Save(s.blockchainPath); err != nil {
		s.log.Warn().Err(err).Msg("persisting blockchain after accepted block")
	}
	s.mp.RemoveIncluded(b.Transactions)

	s.log.Info().Uint64("index", b.Index).Str("hash", b.Hash).Msg("accepted submitted block")
	return "ok"
}

func (s *Server) handleSubmitTx(body string) string {
	var tx chain.Transaction
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		return "rejected: malformed transaction JSON"
	}

	if err := s.mp.SubmitTx(tx, s.store.Chain()); err != nil {
		return "rejected: " + rejectionReason(err)
	}
	return "ok"
}

func (s *Server) handleSubmitShare(body string) string {
	var sh share
	if err := json.Unmarshal([]byte(body), &sh); err != nil {
		return "rejected: malformed share JSON"
	}

	shareDifficulty := chain.PoolShareDifficulty(s.store.Difficulty())
	if err := s.store.VerifyShare(sh.Block, shareDifficulty); err != nil {
		return "rejected: " + rejectionReason(err)
	}

	s.shares.record(sh.Wallet, sh.Attempts)
	return "ok"
}

func (s *Server) handleUpdateStats(body string) string {
	var upd statsUpdate
	if err := json.Unmarshal([]byte(body), &upd); err != nil {
		return "rejected: malformed stats JSON"
	}
	if upd.Wallet == "" {
		return "rejected: missing wallet"
	}
	if upd.Timestamp == 0 {
		upd.Timestamp = time.Now().Unix()
	}
	s.hashrates.Report(upd.Wallet, upd.Hashrate, upd.Timestamp)
	return "ok"
}

// rejectionReason renders err as the human-readable text that follows
// "rejected: " in the wire protocol (§7): the typed error's Message, never
// its Go-specific wrapped form.
func rejectionReason(err error) string {
	if code, ok := owoerrors.CodeOf(err); ok {
		if e, ok2 := err.(*owoerrors.Error); ok2 {
			return e.Message
		}
		return code.String()
	}
	return err.Error()
}
