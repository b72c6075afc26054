package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Polqt/syncdb/collab"
	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/internal/config"
	"github.com/Polqt/syncdb/internal/httpapi"
	"github.com/Polqt/syncdb/internal/metrics"
	"github.com/Polqt/syncdb/internal/obslog"
	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the syncdbd HTTP/WebSocket server and replication loop",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := obslog.New(obslog.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(reg)

	engine, err := buildEngine(cfg.Sync, log, metricsReg)
	if err != nil {
		return err
	}

	replicaID := cfg.Sync.ReplicaID
	if replicaID == "" {
		replicaID = "syncdbd"
	}

	opts := []replicate.Option{replicate.WithLogger(log), replicate.WithMetrics(metricsReg)}
	if cfg.Sync.PreferMerge {
		opts = append(opts, replicate.WithPreferMerge())
	}
	loop := replicate.New(replicaID, engine, store, crdt.NewVClock(), cfg.Sync.AutoSyncInterval, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop.Start(ctx)
	defer loop.Stop()

	collabHub := collab.NewHub(replicaID, store, engine, loop, log)

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	router := httpapi.New(httpapi.Deps{CollabHub: collabHub, MetricsGatherer: gatherer})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		log.Info("serving", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Kind {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return storage.NewRedis(client, cfg.Redis.Prefix), nil
	default:
		if cfg.Memory.Capacity > 0 {
			return storage.NewBoundedMemory(cfg.Memory.Capacity)
		}
		return storage.NewMemory(), nil
	}
}

func buildEngine(cfg config.SyncConfig, log *zap.Logger, metricsReg *metrics.Registry) (transport.Engine, error) {
	switch cfg.Kind {
	case "websocket":
		return transport.NewWSEngine(cfg.URL, cfg.ReplicaID,
			transport.WithLogger(log),
			transport.WithMetrics(metricsReg),
		), nil
	default:
		return transport.NewManualEngine(), nil
	}
}
