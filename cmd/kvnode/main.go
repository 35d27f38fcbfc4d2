// cmd/kvnode is the server entry-point: it wires a knowledge context,
// its replication transport, and the HTTP API together and serves them.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppriyankuu/knowledgebase/internal/api"
	appconfig "github.com/ppriyankuu/knowledgebase/internal/config"
	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
	"github.com/ppriyankuu/knowledgebase/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	logger := log.New(os.Stderr)

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	interval, err := time.ParseDuration(cfg.ReplicationInterval)
	if err != nil {
		logger.Fatal("invalid replication_interval", "err", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", "err", err)
	}

	ctx := knowledge.NewContext(
		knowledge.WithLogger(logger),
		knowledge.WithMetrics(prometheus.DefaultRegisterer, cfg.MetricsNamespace),
		knowledge.WithID(cfg.NodeID),
	)

	nodes := make([]transport.Node, 0, len(cfg.Peers)+1)
	nodes = append(nodes, transport.Node{ID: cfg.NodeID, Address: cfg.Address})
	for _, p := range cfg.Peers {
		nodes = append(nodes, transport.Node{ID: p.ID, Address: p.Address})
	}
	membership := transport.NewMembership(nodes, 150)

	var replicator *transport.Replicator
	if len(cfg.Peers) > 0 {
		replicator = transport.NewReplicator(cfg.NodeID, membership, ctx, cfg.Replication, cfg.WriteQuorum, logger)
	}

	r := gin.New()
	apiHandler := api.New(ctx, membership, replicator, cfg.NodeID)
	apiHandler.SetupRoutes(r)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if replicator != nil {
		go replicator.Run(runCtx, interval)
	}

	go func() {
		snapshotPath := fmt.Sprintf("%s/%s.checkpoint", cfg.DataDir, cfg.NodeID)
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if n := ctx.SaveContext(snapshotPath, cfg.NodeID); n < 0 {
					logger.Warn("periodic snapshot failed", "code", n)
				}
			}
		}
	}()

	srv := &http.Server{Addr: cfg.Address, Handler: r}
	go func() {
		logger.Info("starting node", "node_id", cfg.NodeID, "address", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server exited", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
