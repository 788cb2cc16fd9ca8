package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/queue"
	"github.com/JustIsQi/supplierchainsgraph/internal/reconcile"
	"github.com/JustIsQi/supplierchainsgraph/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume queued disclosure records into the graph",
	Long: `Starts the consumer pool: records stranded in the processing list by a
previous crash are first rolled back to pending, then workers drain the
queue until interrupted. Each worker holds its own graph session.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newGraphClient()
	if err != nil {
		return err
	}
	defer client.Close()

	q, err := queue.New(ctx, queue.Config{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	engCfg := engine.Config{
		StockMismatchPolicy: engine.MismatchPolicy(cfg.Worker.StockMismatchPolicy),
	}
	if cfg.MySQL.DSN != "" {
		journal, err := reconcile.Open(ctx, cfg.MySQL.DSN)
		if err != nil {
			return fmt.Errorf("reconciliation journal: %w", err)
		}
		defer journal.Close()
		if err := journal.EnsureSchema(ctx); err != nil {
			return err
		}
		engCfg.Reconciler = journal
	}

	pool := worker.New(q, client, &engine.Stats{}, worker.Config{
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		Engine:       engCfg,
	})
	return pool.Run(ctx)
}

func newGraphClient() (*graph.Client, error) {
	return graph.NewClient(graph.Config{
		Addrs:    cfg.Nebula.Addrs,
		User:     cfg.Nebula.User,
		Password: cfg.Nebula.Password,
		Space:    cfg.Nebula.Space,
	})
}
