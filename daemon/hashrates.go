package daemon

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// walletHashrateTTL is the staleness window past which a wallet's last
// reported hashrate is treated as zero, per §6.1's getwallethashrate /
// getnetworkhashrate behavior.
const walletHashrateTTL = 10 * time.Second

const hashrateCleanupInterval = 5 * time.Second

// walletHashrateEntry is the value stored per wallet address.
type walletHashrateEntry struct {
	Hashrate   float64
	LastUpdate int64
}

// HashrateStore tracks each wallet's last reported hashrate, expiring
// entries older than walletHashrateTTL exactly the way
// original_source/src/daemon.rs's background cleaner task does, but backed
// by github.com/jellydator/ttlcache/v3 instead of a hand-rolled interval
// loop over a plain map. Exported so the HTTP stats endpoint (httpapi) can
// read the same live data the TCP daemon does.
type HashrateStore struct {
	cache *ttlcache.Cache[string, walletHashrateEntry]
}

func newHashrateStore() *HashrateStore {
	cache := ttlcache.New[string, walletHashrateEntry](
		ttlcache.WithTTL[string, walletHashrateEntry](walletHashrateTTL),
		ttlcache.WithCleanupInterval[string, walletHashrateEntry](hashrateCleanupInterval),
	)
	return &HashrateStore{cache: cache}
}

// Start runs the cache's background eviction loop until stop is closed.
func (h *HashrateStore) Start(stop <-chan struct{}) {
	go h.cache.Start()
	go func() {
		<-stop
		h.cache.Stop()
	}()
}

// Report records wallet's self-reported hashrate at timestamp (unix
// seconds), refreshing its TTL.
func (h *HashrateStore) Report(wallet string, hashrate float64, timestamp int64) {
	h.cache.Set(wallet, walletHashrateEntry{Hashrate: hashrate, LastUpdate: timestamp}, ttlcache.DefaultTTL)
}

// WalletHashrate returns wallet's last reported hashrate and its timestamp,
// or the zero value if it has none or its entry has expired — satisfying
// httpapi.HashrateSource.
func (h *HashrateStore) WalletHashrate(wallet string) (float64, int64) {
	item := h.cache.Get(wallet)
	if item == nil {
		return 0, 0
	}
	v := item.Value()
	return v.Hashrate, v.LastUpdate
}

// NetworkHashrate sums every non-expired wallet's reported hashrate,
// satisfying httpapi.HashrateSource.
func (h *HashrateStore) NetworkHashrate() float64 {
	var total float64
	for _, item := range h.cache.Items() {
		total += item.Value().Hashrate
	}
	return total
}
