package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nebula "github.com/vesoft-inc/nebula-go/v3"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/identity"
)

// recordingStore captures every statement instead of talking to a graph.
type recordingStore struct {
	stmts []string
}

func (r *recordingStore) Execute(_ context.Context, stmt string) (*nebula.ResultSet, error) {
	r.stmts = append(r.stmts, stmt)
	return nil, nil
}

func testMigrator(t *testing.T) (*Migrator, *recordingStore) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE companies (id INTEGER PRIMARY KEY, name TEXT, english_name TEXT DEFAULT '', abbreviation TEXT DEFAULT '')`,
		`CREATE TABLE supplier_relations (company_id INTEGER, counterparty_id INTEGER,
			report_date TEXT, amount REAL, ratio REAL, currency TEXT, content TEXT, is_major INTEGER)`,
		`CREATE TABLE customer_relations (company_id INTEGER, counterparty_id INTEGER,
			report_date TEXT, amount REAL, ratio REAL, currency TEXT, content TEXT, is_major INTEGER)`,
		`CREATE TABLE related_company_relations (company_id INTEGER, related_id INTEGER,
			report_date TEXT, related_company_type TEXT, relationship TEXT, ratio REAL)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO companies (id, name) VALUES
		(1, '甲科技股份有限公司'), (2, '乙材料有限公司'), (3, '甲科技')`)
	require.NoError(t, err)

	store := &recordingStore{}
	return New(db, store), store
}

func TestMigrateSuppliers(t *testing.T) {
	m, store := testMigrator(t)
	_, err := m.db.Exec(`INSERT INTO supplier_relations VALUES
		(1, 2, '2023-12-31', 5000000, 0.12, '元', '原材料采购', 1),
		(1, 3, '2023-12-31', 100, 0.01, '元', '', 0)`)
	require.NoError(t, err)

	n, err := m.migrateSuppliers(context.Background())
	require.NoError(t, err)

	// The alias pair (甲科技 supplying 甲科技股份有限公司) is dropped.
	assert.Equal(t, 1, n)
	require.Len(t, store.stmts, 1)

	stmt := store.stmts[0]
	assert.True(t, strings.HasPrefix(stmt, "INSERT EDGE "+engine.EdgeSupplier))
	assert.Contains(t, stmt, "is_major_supplier")

	// Supplier edges run counterparty to reporting company.
	counterparty, _ := identity.Resolve("乙材料有限公司")
	company, _ := identity.Resolve("甲科技股份有限公司")
	assert.Contains(t, stmt, graph.Literal(counterparty)+" -> "+graph.Literal(company))
}

func TestMigrateCustomers(t *testing.T) {
	m, store := testMigrator(t)
	_, err := m.db.Exec(`INSERT INTO customer_relations VALUES
		(1, 2, '2023-06-30', 8000000, 0.2, '元', '产品销售', 1)`)
	require.NoError(t, err)

	n, err := m.migrateCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.stmts, 1)

	stmt := store.stmts[0]
	assert.True(t, strings.HasPrefix(stmt, "INSERT EDGE "+engine.EdgeCustomer))
	assert.Contains(t, stmt, "is_major_customer")

	// Customer edges run the other way, reporting company to counterparty.
	counterparty, _ := identity.Resolve("乙材料有限公司")
	company, _ := identity.Resolve("甲科技股份有限公司")
	assert.Contains(t, stmt, graph.Literal(company)+" -> "+graph.Literal(counterparty))
}

func TestMigrateRelatedCompanies(t *testing.T) {
	m, store := testMigrator(t)
	_, err := m.db.Exec(`INSERT INTO related_company_relations VALUES
		(1, 2, '2024-03-31', '参股公司', '参股', 0.3),
		(1, 3, '2024-03-31', '子公司', '控股', 0.6)`)
	require.NoError(t, err)

	n, err := m.migrateRelatedCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.stmts, 1)

	stmt := store.stmts[0]
	assert.True(t, strings.HasPrefix(stmt, "INSERT EDGE "+engine.EdgeRelatedCompany))
	assert.Contains(t, stmt, "related_company_type")
	assert.Contains(t, stmt, "参股公司")
}
