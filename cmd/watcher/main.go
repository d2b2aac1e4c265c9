// Package main runs the shielded bridge watcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/circuit"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/metrics"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/pkg/httpjson"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/backend"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/decryptor"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/service/scanner"
	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/zcash"
)

type config struct {
	RPCURL        string        `long:"rpc-url" env:"WATCHER_RPC_URL" description:"zcashd RPC URL" default:"http://127.0.0.1:8232"`
	RPCUser       string        `long:"rpc-user" env:"WATCHER_RPC_USER" description:"zcashd RPC username"`
	RPCPassword   string        `long:"rpc-password" env:"WATCHER_RPC_PASSWORD" description:"zcashd RPC password"`
	RPCRPS        int           `long:"rpc-rps" env:"WATCHER_RPC_RPS" description:"max RPC calls per second, 0 for unlimited" default:"20"`
	ViewingKeys   []string      `long:"viewing-key" env:"WATCHER_VIEWING_KEYS" env-delim:"," description:"unified or Sapling viewing key (repeatable)" required:"true"`
	DecryptorURL  string        `long:"decryptor-url" env:"WATCHER_DECRYPTOR_URL" description:"trial-decryption sidecar base URL" required:"true"`
	BackendURL    string        `long:"backend-url" env:"WATCHER_BACKEND_URL" description:"bridge backend base URL" required:"true"`
	WatcherSecret string        `long:"watcher-secret" env:"WATCHER_SECRET" description:"shared secret sent to the backend" required:"true"`
	StartHeight   uint64        `long:"start-height" env:"WATCHER_START_HEIGHT" description:"first height to scan when no checkpoint exists, 0 for tip minus start offset"`
	StartOffset   uint64        `long:"start-offset" env:"WATCHER_START_OFFSET" description:"blocks behind tip to start from" default:"5"`
	Network       model.Network `long:"network" env:"WATCHER_NETWORK" description:"ledger network" choice:"mainnet" choice:"testnet" choice:"regtest" default:"mainnet"`
	Combine       string        `long:"combine" env:"WATCHER_COMBINE" description:"Merkle node compression" choice:"sha256" choice:"poseidon" choice:"mimc" default:"sha256"`
	Store         string        `long:"store" env:"WATCHER_STORE" description:"submission store" choice:"memory" choice:"clickhouse" choice:"redis" default:"memory"`
	ClickhouseDSN string        `long:"clickhouse-dsn" env:"WATCHER_CLICKHOUSE_DSN" description:"ClickHouse DSN"`
	RedisURL      string        `long:"redis-url" env:"WATCHER_REDIS_URL" description:"Redis URL"`
	MetricsAddr   string        `long:"metrics-addr" env:"WATCHER_METRICS_ADDR" description:"address for metrics and status server" default:":2112"`
	GRPCAddr      string        `long:"grpc-addr" env:"WATCHER_GRPC_ADDR" description:"address for gRPC health server, empty to disable"`
	ZMQAddr       string        `long:"zmq-addr" env:"WATCHER_ZMQ_ADDR" description:"zcashd zmq hashblock endpoint, empty to poll"`
	HTTPTimeout   time.Duration `long:"http-timeout" env:"WATCHER_HTTP_TIMEOUT" description:"timeout for sidecar and backend requests" default:"30s"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger.With(zap.String("network", string(cfg.Network)))); err != nil {
		logger.Fatal("shielded bridge watcher failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	combiner, err := circuit.NewCombiner(cfg.Combine)
	if err != nil {
		return err
	}

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s store: %w", cfg.Store, err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("close store", zap.Error(closeErr))
		}
	}()

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init zcash rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	ledger := zcash.NewLedger(
		zcash.NewRPCClient(rpcClient, metrics.NewRPCClient(model.ZEC, cfg.Network)),
		cfg.RPCRPS,
		0,
	)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	decryptPoster, err := httpjson.New(httpClient, cfg.DecryptorURL, nil, metrics.NewHTTPClient("decryptor", cfg.Network))
	if err != nil {
		return fmt.Errorf("init decryptor client: %w", err)
	}
	dec, err := decryptor.New(decryptPoster, cfg.ViewingKeys)
	if err != nil {
		return err
	}
	backendPoster, err := httpjson.New(httpClient, cfg.BackendURL, backend.Headers(cfg.WatcherSecret), metrics.NewHTTPClient("backend", cfg.Network))
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}

	journal := scanner.NewBatchJournal(repo, model.ZEC, cfg.Network, logger)
	journal.Start(ctx)
	defer journal.Stop()

	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger)
	if err != nil {
		return fmt.Errorf("init block signal: %w", err)
	}

	svc, err := scanner.New(
		scanner.Config{
			Coin:        model.ZEC,
			Network:     cfg.Network,
			StartHeight: cfg.StartHeight,
			StartOffset: cfg.StartOffset,
			Combiner:    combiner,
		},
		ledger,
		dec,
		backend.New(backendPoster),
		journal,
		metrics.NewScanner(model.ZEC, cfg.Network),
		logger.Named("scanner"),
		blockSignal,
	)
	if err != nil {
		return err
	}
	if err := svc.Restore(ctx, repo); err != nil {
		return fmt.Errorf("restore scanner state: %w", err)
	}

	startOpsServer(ctx, cfg.MetricsAddr, svc, logger)
	if err := startGRPCServer(ctx, cfg.GRPCAddr, svc, logger); err != nil {
		return err
	}

	logger.Info("starting shielded bridge watcher",
		zap.String("store", cfg.Store),
		zap.String("combine", cfg.Combine),
		zap.Int("viewing_keys", len(cfg.ViewingKeys)),
	)
	return svc.Run(ctx)
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
