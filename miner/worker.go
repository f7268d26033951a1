package miner

import (
	"context"
	"runtime"
	"time"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/rxhash"
)

// worker runs one mining thread, grounded on
// original_source/src/blockchain.rs's mine_block_with_cancel: it repeatedly
// seals a candidate block template by nonce search, checking the shared
// chain_version every flushThreshold attempts (or flushInterval elapsed,
// whichever comes first) so a template built on a now-stale tip is abandoned
// within a bounded number of extra hashes rather than run to completion.
func (p *Pool) worker(ctx context.Context, id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hasher := rxhash.NewHasherFromEnv()
	log := p.log.With("worker").Logger.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tip := p.local.Tip()
		networkDifficulty := p.local.Difficulty()
		difficulty := networkDifficulty
		if p.poolMode {
			difficulty = chain.PoolShareDifficulty(networkDifficulty)
		}

		job := jobID()
		coinbase := p.wallet.CoinbaseTransaction(tip.Index + 1)
		pending := p.mp.Snapshot()
		txs := make([]chain.Transaction, 0, len(pending)+1)
		txs = append(txs, coinbase)
		txs = append(txs, pending...)

		candidate := chain.Block{
			Index:        tip.Index + 1,
			Timestamp:    time.Now().UTC(),
			Transactions: txs,
			PrevHash:     tip.Hash,
			Difficulty:   difficulty,
		}

		epoch := p.chainVersion.Load()
		mined, attempts, ok := p.mineWithCancel(ctx, hasher, candidate, difficulty, epoch)
		if !ok {
			// Either ctx was cancelled or the chain moved under us; loop
			// back and rebuild the template against the current tip.
			continue
		}

		log.Debug().Str("job", job).Uint64("attempts", attempts).Bool("pool", p.poolMode).Msg("sealed candidate")

		select {
		case p.candidates <- minedCandidate{block: mined, attempts: attempts, share: p.poolMode}:
		case <-ctx.Done():
			return
		}

		p.throttle(ctx)
	}
}

// mineWithCancel searches nonces starting from 0 until the candidate's hash
// meets difficulty, the shared chain_version advances past epoch, or ctx is
// cancelled. It returns ok=false in the latter two cases.
func (p *Pool) mineWithCancel(ctx context.Context, hasher *rxhash.Hasher, candidate chain.Block, difficulty uint32, epoch uint64) (chain.Block, uint64, bool) {
	var localAttempts uint64
	var sinceFlush uint64
	lastFlush := time.Now()

	for nonce := uint32(0); ; nonce++ {
		candidate.Nonce = nonce
		candidate.Hash = chain.ComputeHash(hasher, candidate)
		localAttempts++
		sinceFlush++

		if rxhash.MeetsDifficulty(candidate.Hash, difficulty) {
			p.attempts.Add(sinceFlush)
			return candidate, localAttempts, true
		}

		if sinceFlush >= p.flushThreshold || time.Since(lastFlush) >= p.flushInterval {
			p.attempts.Add(sinceFlush)
			sinceFlush = 0
			lastFlush = time.Now()

			select {
			case <-ctx.Done():
				return chain.Block{}, localAttempts, false
			default:
			}
			if p.chainVersion.Load() != epoch {
				return chain.Block{}, localAttempts, false
			}
		}
	}
}

// throttle sleeps proportionally to (100-intensity), matching the original
// implementation's CPU-intensity knob: full intensity (100) never sleeps.
func (p *Pool) throttle(ctx context.Context) {
	if p.intensity >= 100 {
		return
	}
	ms := (100 - p.intensity) * 10 / 100
	if ms <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
	}
}
