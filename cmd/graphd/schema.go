package main

import (
	"github.com/spf13/cobra"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the graph space, tags, edges and indexes",
	Long: `Provisions the configured space with the full catalog. All statements
are IF NOT EXISTS, so running against an already provisioned space is a
no-op apart from the settling waits.`,
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	client, err := graph.NewBootstrapClient(graph.Config{
		Addrs:    cfg.Nebula.Addrs,
		User:     cfg.Nebula.User,
		Password: cfg.Nebula.Password,
		Space:    cfg.Nebula.Space,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	return schema.Bootstrap(cmd.Context(), client, cfg.Nebula.Space)
}
