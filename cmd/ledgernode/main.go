// Command ledgernode runs a single block-lattice ledger node: the
// block processor, confirming set, vote processor, online
// representatives register, the four schedulers, the write-guard
// they all funnel through, and an optional Postgres confirmation
// archive, all wired against one store.Store and one observer.Bus.
//
// This is the only place that exits the process deliberately (log.Fatalf
// on startup failures) and that handles OS signal-driven shutdown — no
// library package under pkg/ calls os.Exit itself; store failures inside
// library packages surface as panics.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/ledgercore/pkg/archive"
	"github.com/certen/ledgercore/pkg/cementer"
	"github.com/certen/ledgercore/pkg/config"
	"github.com/certen/ledgercore/pkg/elections"
	"github.com/certen/ledgercore/pkg/ledger"
	"github.com/certen/ledgercore/pkg/metrics"
	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/onlinereps"
	"github.com/certen/ledgercore/pkg/processor"
	"github.com/certen/ledgercore/pkg/repweight"
	"github.com/certen/ledgercore/pkg/scheduler"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/certen/ledgercore/pkg/store/migrations"
	"github.com/certen/ledgercore/pkg/votecache"
	"github.com/certen/ledgercore/pkg/voteprocessor"
	"github.com/certen/ledgercore/pkg/writeguard"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting ledgernode")

	var (
		configFile = flag.String("config", "", "Path to a YAML config file (overrides environment-variable defaults)")
		nodeID     = flag.String("node-id", "", "Node ID (overrides NODE_ID env var)")
		dataDir    = flag.String("data-dir", "", "Data directory (overrides DATA_DIR env var)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.Printf("node %s: data dir %s, kv backend %s", cfg.NodeID, cfg.DataDir, cfg.KVBackend)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		log.Fatalf("create data dir %s: %v", cfg.DataDir, err)
	}

	db, err := store.OpenBackend(cfg.DBName, cfg.DataDir, store.Backend(cfg.KVBackend))
	if err != nil {
		log.Fatalf("open store backend: %v", err)
	}
	kv := store.NewKVStore(db)
	defer kv.Close()

	if err := migrations.Run(kv); err != nil {
		log.Fatalf("run store migrations: %v", err)
	}
	log.Printf("store at version %d", migrations.CurrentVersion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bus observer.Bus
	weights := repweight.New()
	if err := kv.View(func(txn store.ReadTxn) error {
		accounts, err := ledger.ListAccounts(txn)
		if err != nil {
			return err
		}
		for _, info := range accounts {
			weights.AddWeight(info.Representative, info.Balance)
		}
		return nil
	}); err != nil {
		log.Fatalf("rebuild representative weights: %v", err)
	}
	cache := votecache.New(50_000, cfg.VoteCacheMaxVotesPerHash, cfg.VoteCacheMaxAge)
	active := elections.NewActive(cfg.ActiveElectionsLimit, &bus)

	online := onlinereps.New(kv, weights, cfg)
	online.Start(ctx)
	defer online.Stop()

	votes := voteprocessor.New(4, 4096, active, cache, weights, online, cfg.QuorumPercent, &bus)
	votes.SetOnlineObserver(online)
	votes.Start(ctx)
	defer votes.Wait()

	guard := writeguard.New(kv, 4096)
	guard.Start(ctx)
	defer guard.Stop()

	m := metrics.New()

	proc := processor.New(guard, weights, &bus)
	proc.SetMetrics(m)
	proc.Start(ctx)
	defer proc.Stop()

	cmt := cementer.New(guard, &bus, cfg)
	cmt.SetMetrics(m)
	cmt.SubscribeElections(ctx, &bus)
	cmt.Start(ctx)
	defer cmt.Stop()

	priorityScheduler := scheduler.NewPriority(kv, active, cfg.ActiveElectionsLimit, cfg.ConfirmationRequestTTL)
	priorityScheduler.Start(ctx)
	defer priorityScheduler.Stop()

	hintedScheduler := scheduler.NewHinted(kv, active, cache, weights, online, cfg.HintedWeightPercent, cfg.ConfirmationRequestTTL)
	hintedScheduler.Start(ctx)
	defer hintedScheduler.Stop()

	optimisticScheduler := scheduler.NewOptimistic(kv, active, cfg.OptimisticGapThreshold, cfg.ConfirmationRequestTTL)
	optimisticScheduler.Start(ctx)
	defer optimisticScheduler.Stop()

	manualScheduler := scheduler.NewManual(kv, active, 256)
	manualScheduler.Start(ctx)
	defer manualScheduler.Stop()

	archiveSink, err := archive.NewSink(cfg)
	if err != nil {
		if cfg.ArchiveRequired {
			log.Fatalf("open confirmation archive: %v", err)
		}
		log.Printf("confirmation archive disabled: %v", err)
		archiveSink = &archive.Sink{}
	}
	archiveSink.Start(ctx, &bus)
	defer archiveSink.Close()

	m.SubscribeObserver(ctx, &bus)
	m.StartGaugeSampler(ctx, active, online, 10*time.Second)
	defer m.Stop()

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: m.Handler(),
	}
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server: %v", err)
		}
	}()

	log.Printf("ledgernode %s ready", cfg.NodeID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down ledgernode")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	log.Printf("ledgernode stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
