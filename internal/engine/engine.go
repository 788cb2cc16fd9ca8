// Package engine turns one extraction record into idempotent vertex and
// edge mutations. It owns the upsert policy: at-most-one vertex per
// identity, multi-version edges disambiguated by rank, duplicate
// suppression by full property match, and the subsidiary/parent symmetric
// pair invariant.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
)

// Vertex tags in the fixed catalog.
const (
	TagCompany = "Company"
	TagPerson  = "Person"
	TagStock   = "Stock"
	TagProduct = "Product"
)

// Edge kinds in the fixed catalog.
const (
	EdgeBaseCompanyInfo = "BASE_COMPANY_INFO"
	EdgeBaseStockInfo   = "BASE_STOCK_INFO"
	EdgePositionInfo    = "POSITION_INFO"
	EdgeShareholder     = "SHAREHOLDER"
	EdgeSubsidiary      = "SUBSIDIARY"
	EdgeParentOf        = "PARENT_OF"
	EdgeRelatedCompany  = "RELATED_COMPANY"
	EdgeSupplier        = "SUPPLIER"
	EdgeCustomer        = "CUSTOMER"
	EdgeMainBusiness    = "MAIN_BUSINESS_COMPOSITION"
)

// ErrNoCompany means the record has no usable company anchor; nothing in
// it can be attached to the graph. Permanent: retrying cannot help.
var ErrNoCompany = errors.New("engine: record has no company name")

// Store is the write surface the engine needs from the graph client.
// *graph.Store satisfies it; tests use an in-memory fake.
type Store interface {
	VertexExists(ctx context.Context, vid string) (bool, error)
	InsertVertex(ctx context.Context, tag, vid string, props graph.Props) error
	EdgeExists(ctx context.Context, fromTag string, fromPred graph.Props, toTag string, toPred graph.Props, edge string, rank int64, edgePred graph.Props) (bool, error)
	InsertEdge(ctx context.Context, edge, from, to string, rank int64, props graph.Props) error
}

// PairDefect records a half-written subsidiary/parent pair: one direction
// is in the store, the other could not be inserted even after a retry.
type PairDefect struct {
	ParentVID      string
	ParentName     string
	SubsidiaryVID  string
	SubsidiaryName string
	MissingEdge    string // EdgeSubsidiary or EdgeParentOf
	Rank           int64
	Props          graph.Props
}

// Reconciler accepts pair defects for later repair. Optional; without one
// the defect is only logged and counted.
type Reconciler interface {
	FlagPairDefect(ctx context.Context, d PairDefect) error
}

// MismatchPolicy decides what happens when a multi-code stock section has
// comma-joined lists of different lengths.
type MismatchPolicy string

const (
	// MismatchFirst falls back to the first list element for every code.
	MismatchFirst MismatchPolicy = "first"
	// MismatchReject skips the whole stock section.
	MismatchReject MismatchPolicy = "reject"
)

// Config tunes an Upserter.
type Config struct {
	Reconciler          Reconciler
	StockMismatchPolicy MismatchPolicy
}

// Upserter consumes extraction records and writes them to the store.
// Safe for use by one goroutine at a time; run one Upserter per worker,
// each with its own store session. Stats may be shared across workers.
type Upserter struct {
	store    Store
	recon    Reconciler
	stats    *Stats
	logger   *slog.Logger
	mismatch MismatchPolicy
}

// New creates an Upserter writing through store, accumulating into stats.
func New(store Store, stats *Stats, cfg Config) *Upserter {
	policy := cfg.StockMismatchPolicy
	if policy == "" {
		policy = MismatchFirst
	}
	return &Upserter{
		store:    store,
		recon:    cfg.Reconciler,
		stats:    stats,
		logger:   slog.Default().With("component", "engine"),
		mismatch: policy,
	}
}

// Stats counts upsert outcomes across all workers. Counters are atomic so
// concurrent workers can share one instance.
type Stats struct {
	verticesInserted atomic.Int64
	verticesSkipped  atomic.Int64
	edgesInserted    atomic.Int64
	edgesSkipped     atomic.Int64
	pairDefects      atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	VerticesInserted int64
	VerticesSkipped  int64
	EdgesInserted    int64
	EdgesSkipped     int64
	PairDefects      int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		VerticesInserted: s.verticesInserted.Load(),
		VerticesSkipped:  s.verticesSkipped.Load(),
		EdgesInserted:    s.edgesInserted.Load(),
		EdgesSkipped:     s.edgesSkipped.Load(),
		PairDefects:      s.pairDefects.Load(),
	}
}

// Log writes a summary of the counters.
func (s *Stats) Log(logger *slog.Logger) {
	snap := s.Snapshot()
	logger.Info("upsert statistics",
		"vertices_inserted", snap.VerticesInserted,
		"vertices_skipped", snap.VerticesSkipped,
		"edges_inserted", snap.EdgesInserted,
		"edges_skipped", snap.EdgesSkipped,
		"pair_defects", snap.PairDefects)
}
