// Package reconcile journals half-written subsidiary pairs to MySQL so an
// operator or a repair pass can restore the symmetric invariant later.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pair_write_defects (
    id              BIGINT AUTO_INCREMENT PRIMARY KEY,
    parent_vid      VARCHAR(64)  NOT NULL,
    parent_name     VARCHAR(255) NOT NULL,
    subsidiary_vid  VARCHAR(64)  NOT NULL,
    subsidiary_name VARCHAR(255) NOT NULL,
    missing_edge    VARCHAR(32)  NOT NULL,
    edge_rank       BIGINT       NOT NULL,
    props_json      TEXT         NOT NULL,
    retry_count     INT          NOT NULL DEFAULT 0,
    resolved        TINYINT(1)   NOT NULL DEFAULT 0,
    created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_pair (parent_vid, subsidiary_vid, missing_edge, edge_rank)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// Defect is a journaled pair defect row.
type Defect struct {
	ID             int64     `db:"id"`
	ParentVID      string    `db:"parent_vid"`
	ParentName     string    `db:"parent_name"`
	SubsidiaryVID  string    `db:"subsidiary_vid"`
	SubsidiaryName string    `db:"subsidiary_name"`
	MissingEdge    string    `db:"missing_edge"`
	Rank           int64     `db:"edge_rank"`
	PropsJSON      string    `db:"props_json"`
	RetryCount     int       `db:"retry_count"`
	Resolved       bool      `db:"resolved"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Journal persists pair defects. It satisfies engine.Reconciler.
type Journal struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to MySQL and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Journal{
		db:     db,
		logger: slog.Default().With("component", "reconcile"),
	}, nil
}

// EnsureSchema creates the journal table if it does not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create pair_write_defects: %w", err)
	}
	return nil
}

// FlagPairDefect records a one-sided pair. A repeated defect for the same
// pair bumps its retry count instead of growing the table.
func (j *Journal) FlagPairDefect(ctx context.Context, d engine.PairDefect) error {
	props, err := json.Marshal(d.Props)
	if err != nil {
		return fmt.Errorf("encode defect props: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO pair_write_defects
		    (parent_vid, parent_name, subsidiary_vid, subsidiary_name, missing_edge, edge_rank, props_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE retry_count = retry_count + 1, resolved = 0`,
		d.ParentVID, d.ParentName, d.SubsidiaryVID, d.SubsidiaryName, d.MissingEdge, d.Rank, string(props))
	if err != nil {
		return fmt.Errorf("journal pair defect %s/%s: %w", d.ParentName, d.SubsidiaryName, err)
	}
	j.logger.Info("pair defect journaled",
		"parent", d.ParentName, "subsidiary", d.SubsidiaryName, "missing_edge", d.MissingEdge)
	return nil
}

// Pending returns unresolved defects, oldest first.
func (j *Journal) Pending(ctx context.Context, limit int) ([]Defect, error) {
	var out []Defect
	err := j.db.SelectContext(ctx, &out, `
		SELECT * FROM pair_write_defects
		WHERE resolved = 0
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load pending defects: %w", err)
	}
	return out, nil
}

// Resolve marks a defect repaired.
func (j *Journal) Resolve(ctx context.Context, id int64) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE pair_write_defects SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolve defect %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("defect %d not found", id)
	}
	return nil
}

// Props decodes the stored property snapshot of a defect.
func (d *Defect) Props() ([]PropValue, error) {
	var props []PropValue
	if err := json.Unmarshal([]byte(d.PropsJSON), &props); err != nil {
		return nil, fmt.Errorf("decode defect props: %w", err)
	}
	return props, nil
}

// PropValue mirrors one stored edge property.
type PropValue struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
