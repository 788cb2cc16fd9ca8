// Package migrate bulk-seeds the graph from the relational system of
// record. It streams each source table in batches and emits multi-value
// INSERT statements, so a full seed is a handful of statements per
// thousand rows instead of one round trip per row.
package migrate

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	nebula "github.com/vesoft-inc/nebula-go/v3"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/identity"
	"github.com/JustIsQi/supplierchainsgraph/internal/normalize"
)

const defaultBatchSize = 1000

// Executor runs one nGQL statement. *graph.Store satisfies it.
type Executor interface {
	Execute(ctx context.Context, stmt string) (*nebula.ResultSet, error)
}

// Migrator copies relational rows into the graph store.
type Migrator struct {
	db        *sqlx.DB
	store     Executor
	batchSize int
	log       *logrus.Entry
}

// New builds a Migrator over an open database handle and graph session.
func New(db *sqlx.DB, store Executor) *Migrator {
	return &Migrator{
		db:        db,
		store:     store,
		batchSize: defaultBatchSize,
		log:       logrus.WithField("component", "migrate"),
	}
}

// Run migrates every table in dependency order: vertices first, then the
// edges that reference them.
func (m *Migrator) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"companies", m.migrateCompanies},
		{"persons", m.migratePersons},
		{"stocks", m.migrateStocks},
		{"stock listings", m.migrateStockListings},
		{"subsidiary pairs", m.migrateSubsidiaryPairs},
		{"supplier relations", m.migrateSuppliers},
		{"customer relations", m.migrateCustomers},
		{"related companies", m.migrateRelatedCompanies},
	}
	for _, step := range steps {
		n, err := step.fn(ctx)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
		m.log.WithFields(logrus.Fields{"step": step.name, "rows": n}).Info("Migration step complete")
	}
	return nil
}

type companyRow struct {
	Name         string `db:"name"`
	EnglishName  string `db:"english_name"`
	Abbreviation string `db:"abbreviation"`
}

func (m *Migrator) migrateCompanies(ctx context.Context) (int, error) {
	var rows []companyRow
	if err := m.db.SelectContext(ctx, &rows,
		`SELECT name, english_name, abbreviation FROM companies`); err != nil {
		return 0, err
	}

	return len(rows), m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			vid, err := identity.Resolve(r.Name)
			if err != nil {
				continue
			}
			props := graph.Props{
				{Name: "name", Value: r.Name},
				{Name: "english_name", Value: r.EnglishName},
				{Name: "abbreviation", Value: r.Abbreviation},
			}
			values = append(values, fmt.Sprintf("%s: (%s)", graph.Literal(vid), props.Values()))
		}
		return m.insertVertexBatch(ctx, engine.TagCompany,
			"name, english_name, abbreviation", values)
	})
}

type personRow struct {
	Name           string `db:"name"`
	EnglishName    string `db:"english_name"`
	Birth          string `db:"birth"`
	EducationLevel string `db:"education_level"`
	Sex            string `db:"sex"`
}

func (m *Migrator) migratePersons(ctx context.Context) (int, error) {
	var rows []personRow
	if err := m.db.SelectContext(ctx, &rows,
		`SELECT name, english_name, birth, education_level, sex FROM persons`); err != nil {
		return 0, err
	}

	return len(rows), m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			vid, err := identity.Resolve(r.Name)
			if err != nil {
				continue
			}
			props := graph.Props{
				{Name: "name", Value: r.Name},
				{Name: "english_name", Value: r.EnglishName},
				{Name: "birth_date", Value: r.Birth},
				{Name: "education_level", Value: r.EducationLevel},
				{Name: "sex", Value: r.Sex},
			}
			values = append(values, fmt.Sprintf("%s: (%s)", graph.Literal(vid), props.Values()))
		}
		return m.insertVertexBatch(ctx, engine.TagPerson,
			"name, english_name, birth_date, education_level, sex", values)
	})
}

type stockRow struct {
	Code        string `db:"code"`
	Name        string `db:"name"`
	Type        string `db:"type"`
	Exchange    string `db:"exchange"`
	ListDate    string `db:"list_date"`
	DelistDate  string `db:"delist_date"`
	CompanyName string `db:"company_name"`
}

func (m *Migrator) migrateStocks(ctx context.Context) (int, error) {
	rows, err := m.stockRows(ctx)
	if err != nil {
		return 0, err
	}

	return len(rows), m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			vid, err := identity.Resolve(r.Code)
			if err != nil {
				continue
			}
			props := graph.Props{
				{Name: "code", Value: r.Code},
				{Name: "name", Value: r.Name},
				{Name: "type", Value: r.Type},
				{Name: "exchange", Value: r.Exchange},
				{Name: "list_date", Value: r.ListDate},
				{Name: "delist_date", Value: r.DelistDate},
			}
			values = append(values, fmt.Sprintf("%s: (%s)", graph.Literal(vid), props.Values()))
		}
		return m.insertVertexBatch(ctx, engine.TagStock,
			"code, name, type, exchange, list_date, delist_date", values)
	})
}

// migrateStockListings links each stock to its issuing company.
func (m *Migrator) migrateStockListings(ctx context.Context) (int, error) {
	rows, err := m.stockRows(ctx)
	if err != nil {
		return 0, err
	}

	return len(rows), m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			stockVID, err := identity.Resolve(r.Code)
			if err != nil {
				continue
			}
			companyVID, err := identity.Resolve(r.CompanyName)
			if err != nil {
				continue
			}
			rank := normalize.DateToRank(r.ListDate)
			props := graph.Props{
				{Name: "list_status", Value: ""},
				{Name: "total_share_capital", Value: int64(0)},
				{Name: "circulating_share_capital", Value: int64(0)},
				{Name: "risk_warning_status", Value: ""},
				{Name: "risk_warning_time", Value: graph.Timestamp("")},
				{Name: "cancel_risk_warning_time", Value: graph.Timestamp("")},
				{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(r.ListDate))},
			}
			values = append(values, fmt.Sprintf("%s -> %s @%d: (%s)",
				graph.Literal(stockVID), graph.Literal(companyVID), rank, props.Values()))
		}
		return m.insertEdgeBatch(ctx, engine.EdgeBaseStockInfo,
			"list_status, total_share_capital, circulating_share_capital, risk_warning_status, risk_warning_time, cancel_risk_warning_time, report_date",
			values)
	})
}

func (m *Migrator) stockRows(ctx context.Context) ([]stockRow, error) {
	var rows []stockRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT s.code, s.name, s.type, s.exchange, s.list_date, s.delist_date, c.name AS company_name
		FROM stocks s
		JOIN companies c ON c.id = s.company_id`)
	return rows, err
}

type subsidiaryRow struct {
	ParentName        string  `db:"parent_name"`
	SubsidiaryName    string  `db:"subsidiary_name"`
	ReportDate        string  `db:"report_date"`
	ShareholdingRatio float64 `db:"shareholding_ratio"`
	VoteRatio         float64 `db:"vote_ratio"`
	RegistrationPlace string  `db:"registration_place"`
	BusinessScope     string  `db:"business_scope"`
}

// migrateSubsidiaryPairs writes both directions of every ownership row.
// The validity filter drops self-references and alias spellings before
// they become self-loops in the graph.
func (m *Migrator) migrateSubsidiaryPairs(ctx context.Context) (int, error) {
	var rows []subsidiaryRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT p.name AS parent_name, s.name AS subsidiary_name,
		       r.report_date, r.shareholding_ratio, r.vote_ratio,
		       r.registration_place, r.business_scope
		FROM subsidiary_relations r
		JOIN companies p ON p.id = r.parent_id
		JOIN companies s ON s.id = r.subsidiary_id`)
	if err != nil {
		return 0, err
	}

	kept := rows[:0]
	for _, r := range rows {
		if !ValidPair(r.ParentName, r.SubsidiaryName) {
			m.log.WithFields(logrus.Fields{
				"parent":     r.ParentName,
				"subsidiary": r.SubsidiaryName,
			}).Debug("Dropping alias or self-referencing pair")
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	columns := "shareholding_ratio, vote_ratio, registration_place, business_scope, report_date"
	err = m.inBatches(len(rows), func(lo, hi int) error {
		forward := make([]string, 0, hi-lo)
		backward := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			parentVID, err := identity.Resolve(r.ParentName)
			if err != nil {
				continue
			}
			subVID, err := identity.Resolve(r.SubsidiaryName)
			if err != nil {
				continue
			}
			rank := normalize.DateToRank(r.ReportDate)
			props := graph.Props{
				{Name: "shareholding_ratio", Value: r.ShareholdingRatio},
				{Name: "vote_ratio", Value: r.VoteRatio},
				{Name: "registration_place", Value: r.RegistrationPlace},
				{Name: "business_scope", Value: r.BusinessScope},
				{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(r.ReportDate))},
			}
			forward = append(forward, fmt.Sprintf("%s -> %s @%d: (%s)",
				graph.Literal(subVID), graph.Literal(parentVID), rank, props.Values()))
			backward = append(backward, fmt.Sprintf("%s -> %s @%d: (%s)",
				graph.Literal(parentVID), graph.Literal(subVID), rank, props.Values()))
		}
		if err := m.insertEdgeBatch(ctx, engine.EdgeSubsidiary, columns, forward); err != nil {
			return err
		}
		return m.insertEdgeBatch(ctx, engine.EdgeParentOf, columns, backward)
	})
	return len(rows), err
}

type tradeRow struct {
	CounterpartyName string  `db:"counterparty_name"`
	CompanyName      string  `db:"company_name"`
	ReportDate       string  `db:"report_date"`
	Amount           float64 `db:"amount"`
	Ratio            float64 `db:"ratio"`
	Currency         string  `db:"currency"`
	Content          string  `db:"content"`
	IsMajor          bool    `db:"is_major"`
}

func (m *Migrator) migrateSuppliers(ctx context.Context) (int, error) {
	// Supplier edges point from the counterparty to the reporting company.
	return m.migrateTradeRelations(ctx, "supplier_relations", engine.EdgeSupplier,
		"is_major_supplier", false)
}

func (m *Migrator) migrateCustomers(ctx context.Context) (int, error) {
	// Customer edges point from the reporting company to the counterparty.
	return m.migrateTradeRelations(ctx, "customer_relations", engine.EdgeCustomer,
		"is_major_customer", true)
}

// migrateTradeRelations handles the supplier and customer tables, which
// share a column shape and differ only in edge kind and direction.
func (m *Migrator) migrateTradeRelations(ctx context.Context, table, edge, majorColumn string, fromCompany bool) (int, error) {
	var rows []tradeRow
	query := fmt.Sprintf(`
		SELECT o.name AS counterparty_name, c.name AS company_name,
		       r.report_date, r.amount, r.ratio, r.currency, r.content, r.is_major
		FROM %s r
		JOIN companies c ON c.id = r.company_id
		JOIN companies o ON o.id = r.counterparty_id`, table)
	if err := m.db.SelectContext(ctx, &rows, query); err != nil {
		return 0, err
	}
	rows = m.filterPairs(rows)

	columns := fmt.Sprintf("trade_amount, trade_unit, trade_ratio, content, %s, report_date", majorColumn)
	err := m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			counterpartyVID, err := identity.Resolve(r.CounterpartyName)
			if err != nil {
				continue
			}
			companyVID, err := identity.Resolve(r.CompanyName)
			if err != nil {
				continue
			}
			from, to := counterpartyVID, companyVID
			if fromCompany {
				from, to = companyVID, counterpartyVID
			}
			props := graph.Props{
				{Name: "trade_amount", Value: r.Amount},
				{Name: "trade_unit", Value: r.Currency},
				{Name: "trade_ratio", Value: r.Ratio},
				{Name: "content", Value: r.Content},
				{Name: majorColumn, Value: r.IsMajor},
				{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(r.ReportDate))},
			}
			values = append(values, fmt.Sprintf("%s -> %s @%d: (%s)",
				graph.Literal(from), graph.Literal(to),
				normalize.DateToRank(r.ReportDate), props.Values()))
		}
		return m.insertEdgeBatch(ctx, edge, columns, values)
	})
	return len(rows), err
}

func (m *Migrator) filterPairs(rows []tradeRow) []tradeRow {
	kept := rows[:0]
	for _, r := range rows {
		if !ValidPair(r.CounterpartyName, r.CompanyName) {
			m.log.WithFields(logrus.Fields{
				"counterparty": r.CounterpartyName,
				"company":      r.CompanyName,
			}).Debug("Dropping alias or self-referencing pair")
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

type relatedRow struct {
	RelatedName  string  `db:"related_name"`
	CompanyName  string  `db:"company_name"`
	ReportDate   string  `db:"report_date"`
	Type         string  `db:"related_company_type"`
	Relationship string  `db:"relationship"`
	Ratio        float64 `db:"ratio"`
}

func (m *Migrator) migrateRelatedCompanies(ctx context.Context) (int, error) {
	var rows []relatedRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT o.name AS related_name, c.name AS company_name,
		       r.report_date, r.related_company_type, r.relationship, r.ratio
		FROM related_company_relations r
		JOIN companies c ON c.id = r.company_id
		JOIN companies o ON o.id = r.related_id`)
	if err != nil {
		return 0, err
	}

	kept := rows[:0]
	for _, r := range rows {
		if !ValidPair(r.RelatedName, r.CompanyName) {
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	columns := "related_company_type, relationship, ratio, report_date"
	err = m.inBatches(len(rows), func(lo, hi int) error {
		values := make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			relatedVID, err := identity.Resolve(r.RelatedName)
			if err != nil {
				continue
			}
			companyVID, err := identity.Resolve(r.CompanyName)
			if err != nil {
				continue
			}
			props := graph.Props{
				{Name: "related_company_type", Value: r.Type},
				{Name: "relationship", Value: r.Relationship},
				{Name: "ratio", Value: r.Ratio},
				{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(r.ReportDate))},
			}
			values = append(values, fmt.Sprintf("%s -> %s @%d: (%s)",
				graph.Literal(relatedVID), graph.Literal(companyVID),
				normalize.DateToRank(r.ReportDate), props.Values()))
		}
		return m.insertEdgeBatch(ctx, engine.EdgeRelatedCompany, columns, values)
	})
	return len(rows), err
}

// inBatches runs fn over [lo, hi) windows of batchSize.
func (m *Migrator) inBatches(total int, fn func(lo, hi int) error) error {
	for lo := 0; lo < total; lo += m.batchSize {
		hi := lo + m.batchSize
		if hi > total {
			hi = total
		}
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) insertVertexBatch(ctx context.Context, tag, columns string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("INSERT VERTEX %s(%s) VALUES %s", tag, columns, strings.Join(values, ", "))
	if _, err := m.store.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("batch vertex insert %s (%d values): %w", tag, len(values), err)
	}
	return nil
}

func (m *Migrator) insertEdgeBatch(ctx context.Context, edge, columns string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("INSERT EDGE %s(%s) VALUES %s", edge, columns, strings.Join(values, ", "))
	if _, err := m.store.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("batch edge insert %s (%d values): %w", edge, len(values), err)
	}
	return nil
}
