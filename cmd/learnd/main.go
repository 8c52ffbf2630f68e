package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"learnchain/cmd/internal/passphrase"
	"learnchain/config"
	"learnchain/core"
	"learnchain/observability/logging"
	telemetry "learnchain/observability/otel"
	"learnchain/rpc"
	"learnchain/services/indexer"
	"learnchain/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	envFile := flag.String("env-file", "", "Optional dotenv file with overrides (defaults to ./.env when present)")
	flag.Parse()

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("learnd", cfg.Environment,
		logging.WithLevel(logging.ParseLevel(cfg.Logging.Level)),
		logging.WithFile(cfg.LogFile, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("learnd terminated", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("learnd stopped")
}

// loadConfig prompts for the owner keystore passphrase only when a default
// config has to be generated.
func loadConfig(path, envFile string) (*config.Config, error) {
	var opts []config.LoadOption
	if strings.TrimSpace(envFile) != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		pass, err := passphrase.NewSource(config.EnvKeystorePassphrase, "owner").Get()
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithKeystorePassphrase(pass))
	}
	return config.Load(path, opts...)
}

// run wires storage, the node, the indexer and the RPC server, then serves
// until ctx is cancelled. ready, when non-nil, receives the bound address.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready chan<- string) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "learnd",
		Environment: cfg.Environment,
		Network:     cfg.NetworkName,
		ChainID:     cfg.Genesis.ChainID,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	gen, err := cfg.ResolveGenesis()
	if err != nil {
		return err
	}
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	node, err := core.NewNode(db, gen, core.WithLogger(logger), core.WithQuota(cfg.CallQuota()))
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()

	server := rpc.NewServer(node, rpc.Config{
		RequestsPerMinute: cfg.RPC.RequestsPerMinute,
		Burst:             cfg.RPC.Burst,
		OperatorSecret:    cfg.RPC.OperatorSecret,
		OperatorIssuer:    cfg.RPC.OperatorIssuer,
		Faucet:            cfg.Faucet,
		TrustedProxies:    cfg.RPC.TrustedProxies,
	}, logger)

	if dsn := strings.TrimSpace(cfg.IndexerDSN); dsn != "" {
		store, err := indexer.Open(dsn)
		if err != nil {
			return fmt.Errorf("open indexer: %w", err)
		}
		if sqlDB, err := store.DB(); err == nil {
			defer sqlDB.Close()
		}
		ix := indexer.New(store, logger)
		server.SetEventLister(ix)
		indexCtx, cancelIndex := context.WithCancel(ctx)
		indexDone := make(chan struct{})
		go func() {
			defer close(indexDone)
			ix.Run(indexCtx, node.Events())
		}()
		defer func() {
			cancelIndex()
			<-indexDone
		}()
	}

	readTimeout, writeTimeout, idleTimeout := cfg.RPC.Timeouts()
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	listener, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.RPCAddress, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	logger.Info("learnd running",
		slog.String("chainId", node.ChainID()),
		slog.String("rpc", listener.Addr().String()),
		logging.MaskPath("dataDir", cfg.DataDir),
		logging.MaskField("indexerDsn", cfg.IndexerDSN),
		slog.Bool("faucet", cfg.Faucet))
	if ready != nil {
		ready <- listener.Addr().String()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("rpc server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown rpc server: %w", err)
	}
	return nil
}
