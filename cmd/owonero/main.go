// Command owonero is the node/miner/wallet CLI: the same binary runs as the
// RPC daemon, a mining pool client, or a one-shot wallet tool, selected by
// flag per §6.4. Grounded on original_source/src/main.rs's determine_command
// dispatch, rebuilt on github.com/urfave/cli/v2 instead of clap.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tosterlolz/Owonero/chain"
	"github.com/tosterlolz/Owonero/config"
	"github.com/tosterlolz/Owonero/daemon"
	"github.com/tosterlolz/Owonero/httpapi"
	"github.com/tosterlolz/Owonero/mempool"
	"github.com/tosterlolz/Owonero/miner"
	"github.com/tosterlolz/Owonero/rpcclient"
	"github.com/tosterlolz/Owonero/rxhash"
	"github.com/tosterlolz/Owonero/ulog"
	"github.com/tosterlolz/Owonero/wallet"
)

const blockchainFile = "blockchain.json"

func main() {
	app := &cli.App{
		Name:  "owonero",
		Usage: "Owonero cryptocurrency node, miner and wallet",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "daemon", Aliases: []string{"d"}, Usage: "run as RPC daemon"},
			&cli.BoolFlag{Name: "mine", Aliases: []string{"m"}, Usage: "run the mining pool against a node"},
			&cli.BoolFlag{Name: "standalone", Usage: "run daemon and miner in one process, the miner talking to the daemon over loopback"},
			&cli.BoolFlag{Name: "send", Usage: "send OWO to another wallet"},
			&cli.StringFlag{Name: "to", Usage: "destination address for --send"},
			&cli.StringFlag{Name: "amount", Usage: "amount to send for --send (decimal)"},
			&cli.BoolFlag{Name: "tx-history", Usage: "print this wallet's transaction history"},

			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6969, Usage: "daemon RPC port"},
			&cli.IntFlag{Name: "web-port", Value: 6767, Usage: "HTTP stats port"},
			&cli.StringFlag{Name: "node-addr", Aliases: []string{"n"}, Value: "localhost:6969", Usage: "node address (host:port)"},
			&cli.StringFlag{Name: "wallet-path", Aliases: []string{"w"}, Value: "wallet.json", Usage: "wallet file path"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"t"}, Value: 1, Usage: "number of mining threads"},
			&cli.IntFlag{Name: "intensity", Aliases: []string{"i"}, Value: 100, Usage: "CPU intensity percent (1-100)"},
			&cli.BoolFlag{Name: "pool", Usage: "mine at reduced pool difficulty, submitting shares"},
			&cli.StringFlag{Name: "peers", Usage: "comma-separated list of peer addresses"},
			&cli.Uint64Flag{Name: "blocks", Aliases: []string{"b"}, Value: 0, Usage: "blocks to mine before stopping (0 = forever)"},
			&cli.BoolFlag{Name: "no-init", Usage: "don't initialize the chain from disk; start empty and rely on sync"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := ulog.New("cli")

	cfg := config.Default()
	cfg.NodeAddress = c.String("node-addr")
	cfg.DaemonPort = uint16(c.Int("port"))
	cfg.WebPort = uint16(c.Int("web-port"))
	cfg.WalletPath = c.String("wallet-path")
	cfg.MiningThreads = c.Int("threads")
	cfg.MiningIntensity = uint8(c.Int("intensity"))
	cfg.Pool = c.Bool("pool")
	if peers := c.String("peers"); peers != "" {
		for _, p := range strings.Split(peers, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.Peers = append(cfg.Peers, p)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case c.Bool("standalone"):
		return runStandalone(c, log, cfg)
	case c.Bool("daemon"):
		return runDaemon(c, log, cfg)
	case c.Bool("send"):
		return runSend(c, log, cfg)
	case c.Bool("tx-history"):
		return runTxHistory(log, cfg)
	case c.Bool("mine"):
		return runMine(c, log, cfg)
	default:
		return runWalletInfo(log, cfg)
	}
}

func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runDaemon starts the TCP RPC server and, alongside it, the read-only HTTP
// stats endpoint, matching original_source/src/main.rs's run_daemon_mode.
func runDaemon(c *cli.Context, log ulog.Logger, cfg config.Config) error {
	hasher := rxhash.NewHasherFromEnv()

	var store *chain.Store
	var err error
	if c.Bool("no-init") {
		store = chain.NewStore(hasher, log.With("chain"))
	} else {
		store, err = chain.LoadOrInit(blockchainFile, hasher, log.With("chain"))
		if err != nil {
			return fmt.Errorf("loading blockchain: %w", err)
		}
	}

	mp := mempool.New()
	srv := daemon.New(store, mp, blockchainFile, log)
	for _, p := range cfg.Peers {
		srv.AddPeer(p)
	}

	statsSrv := httpapi.New(store, mp, srv.Hashrates(), log)

	ctx, cancel := rootContext()
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe(ctx, int(cfg.DaemonPort)) }()
	go func() { errCh <- statsSrv.ListenAndServe(int(cfg.WebPort)) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// runMine loads a wallet, dials a node, and runs the mining pool against it
// until ctx is cancelled or --blocks has been satisfied.
func runMine(c *cli.Context, log ulog.Logger, cfg config.Config) error {
	w, err := wallet.LoadOrCreate(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}

	client := rpcclient.New(cfg.NodeAddress)
	seedChain, err := client.GetChain()
	if err != nil {
		return fmt.Errorf("fetching chain from %s: %w", cfg.NodeAddress, err)
	}

	mp := mempool.New()
	if txs, err := client.GetMempool(); err == nil {
		mp.Replace(txs)
	}

	target := c.Uint64("blocks")
	pool := miner.New(client, w, mp, log, seedChain,
		miner.WithThreads(cfg.MiningThreads),
		miner.WithIntensity(int(cfg.MiningIntensity)),
		miner.WithPoolMode(cfg.Pool),
		miner.WithFlushThreshold(miner.FlushThresholdFromEnv()),
		miner.WithFlushInterval(miner.FlushIntervalFromEnv()),
		miner.WithSyncInterval(miner.SyncIntervalFromEnv()),
	)

	ctx, cancelRoot := rootContext()
	defer cancelRoot()
	if target > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go stopAfterBlocks(ctx, cancel, pool, target)
	}

	return pool.Run(ctx)
}

// stopAfterBlocks cancels ctx once pool has mined at least target blocks,
// implementing --blocks's "mine N then stop" behavior from
// original_source/src/miner.rs's blocks_to_mine counter.
func stopAfterBlocks(ctx context.Context, cancel context.CancelFunc, pool *miner.Pool, target uint64) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pool.Snapshot().Mined >= target {
				cancel()
				return
			}
		}
	}
}

// runStandalone runs the daemon and the miner in one process; the miner
// reaches the daemon's chain.Store over a loopback TCP connection, not by
// calling it directly. Supplemented beyond original_source, which always ran
// the miner against a separately-started daemon process.
func runStandalone(c *cli.Context, log ulog.Logger, cfg config.Config) error {
	hasher := rxhash.NewHasherFromEnv()

	var store *chain.Store
	var err error
	if c.Bool("no-init") {
		store = chain.NewStore(hasher, log.With("chain"))
	} else {
		store, err = chain.LoadOrInit(blockchainFile, hasher, log.With("chain"))
		if err != nil {
			return fmt.Errorf("loading blockchain: %w", err)
		}
	}

	mp := mempool.New()
	srv := daemon.New(store, mp, blockchainFile, log)
	for _, p := range cfg.Peers {
		srv.AddPeer(p)
	}
	statsSrv := httpapi.New(store, mp, srv.Hashrates(), log)

	w, err := wallet.LoadOrCreate(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}

	ctx, cancel := rootContext()
	defer cancel()
	errCh := make(chan error, 3)
	go func() { errCh <- srv.ListenAndServe(ctx, int(cfg.DaemonPort)) }()
	go func() { errCh <- statsSrv.ListenAndServe(int(cfg.WebPort)) }()

	// The miner still talks to the daemon over loopback TCP: standalone mode
	// only removes the operational burden of running two processes, it does
	// not collapse the submit/validate boundary between miner and node.
	go func() {
		client := rpcclient.New(fmt.Sprintf("localhost:%d", cfg.DaemonPort))
		waitForDaemon(ctx, client)

		seedChain, err := client.GetChain()
		if err != nil {
			errCh <- fmt.Errorf("fetching seed chain: %w", err)
			return
		}
		minerMp := mempool.New()
		pool := miner.New(client, w, minerMp, log, seedChain,
			miner.WithThreads(cfg.MiningThreads),
			miner.WithIntensity(int(cfg.MiningIntensity)),
			miner.WithPoolMode(cfg.Pool),
			miner.WithFlushThreshold(miner.FlushThresholdFromEnv()),
			miner.WithFlushInterval(miner.FlushIntervalFromEnv()),
			miner.WithSyncInterval(miner.SyncIntervalFromEnv()),
		)

		target := c.Uint64("blocks")
		poolCtx := ctx
		if target > 0 {
			var cancel context.CancelFunc
			poolCtx, cancel = context.WithCancel(ctx)
			defer cancel()
			go stopAfterBlocks(poolCtx, cancel, pool, target)
		}
		errCh <- pool.Run(poolCtx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func waitForDaemon(ctx context.Context, client *rpcclient.Client) {
	for {
		if _, err := client.GetHeight(); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// runSend builds and submits a signed transfer, matching
// original_source/src/main.rs's run_send_mode minus its peer-fallback retry.
func runSend(c *cli.Context, log ulog.Logger, cfg config.Config) error {
	to := c.String("to")
	amountStr := c.String("amount")
	if to == "" {
		return fmt.Errorf("missing --to argument for send")
	}
	if amountStr == "" {
		return fmt.Errorf("missing --amount argument for send")
	}

	var amount int64
	if _, err := fmt.Sscanf(amountStr, "%d", &amount); err != nil {
		return fmt.Errorf("invalid --amount %q: %w", amountStr, err)
	}

	w, err := wallet.LoadOrCreate(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}

	client := rpcclient.New(cfg.NodeAddress)
	result, err := w.Send(client, to, amount)
	if err != nil {
		return fmt.Errorf("building transaction: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("node rejected transaction: %s", result.Reason)
	}

	fmt.Printf("sent %d to %s\n", amount, to)
	return nil
}

// runTxHistory prints every chain transaction crediting or debiting the
// wallet's address, fetching the authoritative chain from the node.
func runTxHistory(log ulog.Logger, cfg config.Config) error {
	w, err := wallet.LoadOrCreate(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}

	client := rpcclient.New(cfg.NodeAddress)
	bc, err := client.GetChain()
	if err != nil {
		return fmt.Errorf("fetching chain from %s: %w", cfg.NodeAddress, err)
	}

	for _, entry := range w.TxHistory(bc) {
		fmt.Printf("block %d  %-9s  %d  from=%s to=%s\n",
			entry.BlockIndex, entry.Direction, entry.Tx.Amount, entry.Tx.From, entry.Tx.To)
	}
	return nil
}

// runWalletInfo is the default command: print address, balance and chain
// height, matching original_source/src/main.rs's run_wallet_info_mode.
func runWalletInfo(log ulog.Logger, cfg config.Config) error {
	w, err := wallet.LoadOrCreate(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}

	client := rpcclient.New(cfg.NodeAddress)
	bc, err := client.GetChain()
	if err != nil {
		return fmt.Errorf("fetching chain from %s: %w", cfg.NodeAddress, err)
	}

	fmt.Printf("Wallet:       %s\n", w.Address)
	fmt.Printf("Balance:      %d\n", w.Balance(bc))
	fmt.Printf("Chain height: %d\n", len(bc.Chain)-1)
	return nil
}
