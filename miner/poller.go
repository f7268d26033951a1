package miner

import (
	"context"
	"time"

	"github.com/tosterlolz/Owonero/ulog"
)

// tipPoller is the Tip Poller (C8): it periodically fetches the
// authoritative tip and folds it into the local chain mirror, bumping
// chain_version so in-flight workers abandon templates built on a now-stale
// tip. A tip that does not cleanly extend the mirror (fork or gap) triggers
// a full resync via GetChain.
func (p *Pool) tipPoller(ctx context.Context) {
	log := p.log.With("tip_poller")
	ticker := time.NewTicker(p.tipPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tip, err := p.client.GetLatest()
			if err != nil {
				log.Warn().Err(err).Msg("fetching latest tip")
				continue
			}
			if tip == nil {
				continue
			}

			changed, needsResync := p.local.Observe(*tip)
			switch {
			case needsResync:
				p.resync(log)
			case changed:
				p.chainVersion.Add(1)
			}
		}
	}
}

func (p *Pool) resync(log ulog.Logger) {
	bc, err := p.client.GetChain()
	if err != nil {
		log.Warn().Err(err).Msg("resyncing local chain mirror")
		return
	}
	p.local.SetChain(bc)
	p.chainVersion.Add(1)
}

// mempoolPoller is the companion poller referenced in §4.8: it periodically
// adopts the node's authoritative pending-transaction set, so worker
// templates build on the same mempool the node will validate against.
func (p *Pool) mempoolPoller(ctx context.Context) {
	log := p.log.With("mempool_poller")
	ticker := time.NewTicker(defaultMempoolPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			txs, err := p.client.GetMempool()
			if err != nil {
				log.Warn().Err(err).Msg("fetching mempool")
				continue
			}
			p.mp.Replace(txs)
		}
	}
}
