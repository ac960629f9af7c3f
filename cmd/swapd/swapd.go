package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/chainbtc"
	"github.com/comitswap/swapd/chaineth"
	"github.com/comitswap/swapd/keyoracle"
	"github.com/comitswap/swapd/registry"
	"github.com/comitswap/swapd/store"
	"github.com/comitswap/swapd/swaplog"
	"github.com/comitswap/swapd/swaprpc"
	"github.com/comitswap/swapd/swapcfg"
)

// swapdMain is the body of main, split out per lnd.go's main/lndMain
// convention so defers run before os.Exit and so tests can drive the
// wiring without touching the process's argv or exit code.
func swapdMain() error {
	cfg, err := swapcfg.LoadConfig(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if err := swaplog.InitLogRotator(cfg.LogFile(), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return fmt.Errorf("init log rotator: %w", err)
	}
	swaplog.Daemon.Infof("swapd starting, datadir=%s", cfg.DataDir)

	db, err := store.Open(filepath.Join(cfg.DataDir, "swapd.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	oracle, err := loadOrCreateOracle(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("load key oracle seed: %w", err)
	}

	var sources blockSources
	if cfg.Bitcoin.Active {
		client, err := dialBitcoin(cfg.Bitcoin)
		if err != nil {
			return fmt.Errorf("dial bitcoin rpc: %w", err)
		}
		network := bitcoinParams(cfg.Bitcoin.Network)
		sources.bitcoin = chainbtc.New(client, network)
		swaplog.ChainBTC.Infof("connected to bitcoin rpc at %s (%s)", cfg.Bitcoin.RPCHost, cfg.Bitcoin.Network)
	}
	if cfg.Ethereum.Active {
		client, err := ethclient.Dial(cfg.Ethereum.RPCURL)
		if err != nil {
			return fmt.Errorf("dial ethereum rpc: %w", err)
		}
		sources.ethereum = chaineth.New(client)
		swaplog.ChainETH.Infof("connected to ethereum rpc at %s (chain id %d)", cfg.Ethereum.RPCURL, cfg.Ethereum.ChainID)
	}

	var decider registry.Decider = newAutoAcceptDecider(oracle)
	if cfg.ManualAccept {
		decider = newManualDecider(oracle)
		swaplog.Daemon.Infof("manual accept enabled: incoming swaps wait for an operator decision")
	}
	reg := registry.New(db, decider, swaplog.Registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.Restore(ctx); err != nil {
		return fmt.Errorf("restore swaps: %w", err)
	}
	defer reg.Stop()

	watchers := newWatcherManager(reg, sources, swaplog.Btsieve, time.Duration(cfg.PollIntervalSeconds)*time.Second)
	go watchers.Run(ctx)

	p := newPeerServer(reg, oracle, swaplog.Wireproto)
	wireLn, err := net.Listen("tcp", cfg.WireListen)
	if err != nil {
		return fmt.Errorf("listen wire protocol: %w", err)
	}
	go p.Serve(ctx, wireLn)
	swaplog.Daemon.Infof("negotiation protocol listening on %s", cfg.WireListen)

	grpcServer := grpc.NewServer()
	swaprpc.RegisterSwapServiceServer(grpcServer, newRPCServer(reg))
	rpcLn, err := net.Listen("tcp", cfg.RPCListen)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsListen, Handler: metricsMux}

	// The rpc and metrics listeners are grouped so a fatal Serve error on
	// either one surfaces instead of dying silently in a bare goroutine.
	var srvGroup errgroup.Group
	srvGroup.Go(func() error {
		if err := grpcServer.Serve(rpcLn); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	srvGroup.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	go func() {
		if err := srvGroup.Wait(); err != nil {
			swaplog.Daemon.Errorf("%v", err)
		}
	}()
	swaplog.Daemon.Infof("rpc listening on %s", cfg.RPCListen)
	swaplog.Daemon.Infof("metrics listening on %s", cfg.MetricsListen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	swaplog.Daemon.Infof("shutting down")
	grpcServer.GracefulStop()
	metricsSrv.Close()
	cancel()
	return nil
}

// loadOrCreateOracle reads a 32-byte seed from seedFile, generating and
// persisting a fresh one on first run. The seed file is the daemon's only
// piece of durable secret material beyond the swap database itself.
func loadOrCreateOracle(seedFile string) (*keyoracle.Oracle, error) {
	b, err := os.ReadFile(seedFile)
	if err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("seed file %s: want 32 bytes, got %d", seedFile, len(b))
		}
		var seed [32]byte
		copy(seed[:], b)
		return keyoracle.New(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	if err := os.WriteFile(seedFile, seed[:], 0600); err != nil {
		return nil, fmt.Errorf("write seed file: %w", err)
	}
	return keyoracle.New(seed), nil
}

func dialBitcoin(cfg swapcfg.BitcoinConfig) (*rpcclient.Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	return rpcclient.New(connCfg, nil)
}

func bitcoinParams(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "testnet":
		return &chaincfg.TestNet3Params
	default:
		return &chaincfg.RegressionNetParams
	}
}

var _ btsieve.BlockSource = (*chainbtc.Connector)(nil)
var _ btsieve.BlockSource = (*chaineth.Connector)(nil)
