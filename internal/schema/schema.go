// Package schema provisions the graph space: tags, edge types and the
// lookup indexes the upsert probes rely on. Everything is IF NOT EXISTS,
// so re-running against a live space is safe.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
)

// Nebula propagates DDL through the meta service heartbeat; newly created
// spaces and schema are not usable until the next beat lands.
const settleDelay = 10 * time.Second

var tagDDL = []string{
	`CREATE TAG IF NOT EXISTS Company(
		name string NOT NULL,
		english_name string DEFAULT "",
		abbreviation string DEFAULT ""
	)`,
	`CREATE TAG IF NOT EXISTS Person(
		name string NOT NULL,
		english_name string DEFAULT "",
		birth_date string DEFAULT "",
		education_level string DEFAULT "",
		sex string DEFAULT ""
	)`,
	`CREATE TAG IF NOT EXISTS Stock(
		code string NOT NULL,
		name string DEFAULT "",
		type string DEFAULT "",
		exchange string DEFAULT "",
		list_date string DEFAULT "",
		delist_date string DEFAULT ""
	)`,
	`CREATE TAG IF NOT EXISTS Product(
		name string NOT NULL,
		business_type string DEFAULT ""
	)`,
}

var edgeDDL = []string{
	`CREATE EDGE IF NOT EXISTS BASE_COMPANY_INFO(
		company_type string DEFAULT "",
		registration_place string DEFAULT "",
		business_place string DEFAULT "",
		industry string DEFAULT "",
		business_scope string DEFAULT "",
		qualification string DEFAULT "",
		total_assets double DEFAULT 0,
		total_assets_unit string DEFAULT "",
		registered_capital double DEFAULT 0,
		registered_capital_unit string DEFAULT "",
		is_bond_issuer bool DEFAULT false,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS BASE_STOCK_INFO(
		list_status string DEFAULT "",
		total_share_capital int64 DEFAULT 0,
		circulating_share_capital int64 DEFAULT 0,
		risk_warning_status string DEFAULT "",
		risk_warning_time datetime,
		cancel_risk_warning_time datetime,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS POSITION_INFO(
		position string DEFAULT "",
		is_active bool DEFAULT false,
		compensation double DEFAULT 0,
		compensation_unit string DEFAULT "",
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS SHAREHOLDER(
		shareholder_type string DEFAULT "",
		holding_ratio double DEFAULT 0,
		vote_ratio double DEFAULT 0,
		holding_amount double DEFAULT 0,
		holding_unit string DEFAULT "",
		is_major_shareholder bool DEFAULT false,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS SUBSIDIARY(
		shareholding_ratio double DEFAULT 0,
		vote_ratio double DEFAULT 0,
		registration_place string DEFAULT "",
		business_scope string DEFAULT "",
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS PARENT_OF(
		shareholding_ratio double DEFAULT 0,
		vote_ratio double DEFAULT 0,
		registration_place string DEFAULT "",
		business_scope string DEFAULT "",
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS RELATED_COMPANY(
		related_company_type string DEFAULT "",
		relationship string DEFAULT "",
		ratio double DEFAULT 0,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS SUPPLIER(
		trade_amount double DEFAULT 0,
		trade_unit string DEFAULT "",
		trade_ratio double DEFAULT 0,
		content string DEFAULT "",
		is_major_supplier bool DEFAULT false,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS CUSTOMER(
		trade_amount double DEFAULT 0,
		trade_unit string DEFAULT "",
		trade_ratio double DEFAULT 0,
		content string DEFAULT "",
		is_major_customer bool DEFAULT false,
		report_date datetime
	)`,
	`CREATE EDGE IF NOT EXISTS MAIN_BUSINESS_COMPOSITION(
		revenue double DEFAULT 0,
		revenue_unit string DEFAULT "",
		revenue_ratio double DEFAULT 0,
		cost double DEFAULT 0,
		gross_profit double DEFAULT 0,
		gross_margin double DEFAULT 0,
		country string DEFAULT "",
		description string DEFAULT "",
		report_date datetime
	)`,
}

var indexDDL = []string{
	`CREATE TAG INDEX IF NOT EXISTS idx_company_name ON Company(name(64))`,
	`CREATE TAG INDEX IF NOT EXISTS idx_person_name ON Person(name(64))`,
	`CREATE TAG INDEX IF NOT EXISTS idx_stock_code ON Stock(code(16))`,
	`CREATE TAG INDEX IF NOT EXISTS idx_product_name ON Product(name(64))`,
}

// Bootstrap creates the space and all schema objects, waiting for the
// meta service to settle between phases.
func Bootstrap(ctx context.Context, client *graph.Client, space string) error {
	logger := slog.Default().With("component", "schema")

	store, err := client.NewRawStore()
	if err != nil {
		return err
	}
	defer store.Close()

	createSpace := fmt.Sprintf(
		`CREATE SPACE IF NOT EXISTS %s (partition_num=10, replica_factor=1, vid_type=FIXED_STRING(64))`,
		space)
	if _, err := store.Execute(ctx, createSpace); err != nil {
		return fmt.Errorf("create space %s: %w", space, err)
	}
	logger.Info("space ensured, waiting for meta heartbeat", "space", space)
	if err := settle(ctx); err != nil {
		return err
	}

	if _, err := store.Execute(ctx, "USE "+space); err != nil {
		return fmt.Errorf("use space %s: %w", space, err)
	}

	for _, ddl := range tagDDL {
		if _, err := store.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("tag ddl: %w", err)
		}
	}
	for _, ddl := range edgeDDL {
		if _, err := store.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("edge ddl: %w", err)
		}
	}
	logger.Info("tags and edges ensured, waiting before index creation")
	if err := settle(ctx); err != nil {
		return err
	}

	for _, ddl := range indexDDL {
		if _, err := store.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("index ddl: %w", err)
		}
	}

	logger.Info("schema bootstrap complete", "space", space)
	return nil
}

func settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
		return nil
	}
}
