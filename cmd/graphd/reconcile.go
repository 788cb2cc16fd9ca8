package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JustIsQi/supplierchainsgraph/internal/reconcile"
)

var reconcileLimit int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair half-written subsidiary pairs from the defect journal",
	Long: `Re-inserts the missing direction of each journaled subsidiary/parent
pair and marks repaired rows resolved. Rows whose insert still fails
stay pending for the next run.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", 100, "maximum defects to repair in one run")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if cfg.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required for reconciliation")
	}

	journal, err := reconcile.Open(cmd.Context(), cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	defer journal.Close()
	if err := journal.EnsureSchema(cmd.Context()); err != nil {
		return err
	}

	client, err := newGraphClient()
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := client.NewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	repaired, err := journal.Repair(cmd.Context(), store, reconcileLimit)
	if err != nil {
		return err
	}
	logrus.WithField("repaired", repaired).Info("Reconciliation pass complete")
	return nil
}
