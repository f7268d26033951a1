package miner

import (
	"context"
	"strings"

	"github.com/tosterlolz/Owonero/rpcclient"
	"github.com/tosterlolz/Owonero/ulog"
)

// submitter is the pool's single consumer of mined candidates (C7),
// grounded on original_source/src/miner.rs's block submitter task: every
// candidate is checked against the local tip one last time before being
// sent over the wire, since the tip may have moved between the worker
// sealing it and the submitter getting to it.
func (p *Pool) submitter(ctx context.Context) {
	log := p.log.With("submitter")

	for {
		select {
		case <-ctx.Done():
			return
		case cand, ok := <-p.candidates:
			if !ok {
				return
			}
			p.submitOne(log, cand)
		}
	}
}

func (p *Pool) submitOne(log ulog.Logger, cand minedCandidate) {
	tip := p.local.Tip()
	if cand.block.PrevHash != tip.Hash {
		log.Debug().Msg("dropping stale candidate, tip moved since it was sealed")
		p.chainVersion.Add(1)
		p.rejected.Add(1)
		return
	}

	if cand.share {
		res, err := p.client.SubmitShare(rpcclient.Share{
			Wallet:   p.wallet.Address,
			Nonce:    cand.block.Nonce,
			Attempts: cand.attempts,
			Block:    cand.block,
		})
		if err != nil {
			log.Warn().Err(err).Msg("submitting share")
			return
		}
		if res.OK {
			p.accepted.Add(1)
		} else {
			p.rejected.Add(1)
			log.Debug().Str("reason", res.Reason).Msg("share rejected")
		}
		return
	}

	res, err := p.client.SubmitBlock(cand.block)
	if err != nil {
		log.Warn().Err(err).Msg("submitting block")
		return
	}

	if !res.OK {
		p.rejected.Add(1)
		log.Debug().Str("reason", res.Reason).Msg("block rejected")
		if strings.Contains(res.Reason, "PrevHash") || strings.Contains(res.Reason, "index") {
			p.chainVersion.Add(1)
		}
		return
	}

	p.mined.Add(1)
	p.accepted.Add(1)
	p.local.AppendIfNext(cand.block)
	p.chainVersion.Add(1)
	p.mp.RemoveIncluded(cand.block.Transactions)
	log.Info().Uint64("index", cand.block.Index).Str("hash", cand.block.Hash).Msg("block accepted")
}
