package miner

import (
	"context"
	"time"

	"github.com/tosterlolz/Owonero/rpcclient"
)

// statsReporter periodically reports this wallet's observed hashrate to the
// node, grounded on original_source/src/miner.rs's attempts_history
// sampling: rather than keep the original's rolling minute/hour/day
// deques, it reports the simpler instantaneous rate the node itself
// timestamps and ages out via getwallethashrate's staleness window.
func (p *Pool) statsReporter(ctx context.Context) {
	log := p.log.With("stats")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastAttempts uint64
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cur := p.attempts.Load()
			elapsed := now.Sub(lastTime).Seconds()

			var rate float64
			if elapsed > 0 {
				rate = float64(cur-lastAttempts) / elapsed
			}
			lastAttempts = cur
			lastTime = now

			err := p.client.UpdateStats(rpcclient.StatsUpdate{
				Wallet:    p.wallet.Address,
				Hashrate:  rate,
				Timestamp: now.Unix(),
			})
			if err != nil {
				log.Warn().Err(err).Msg("reporting hashrate")
			}
		}
	}
}
