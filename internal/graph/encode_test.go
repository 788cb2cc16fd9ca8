package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "甲科技股份有限公司", "甲科技股份有限公司"},
		{"Quote", `说"引号"`, `说\"引号\"`},
		{"Backslash", `a\b`, `a\\b`},
		{"Newline", "line1\nline2", `line1\nline2`},
		{"Tab and CR", "a\tb\rc", `a\tb\rc`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeString(tt.input))
		})
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"Nil", nil, "NULL"},
		{"String", "元", `"元"`},
		{"Bool true", true, "true"},
		{"Bool false", false, "false"},
		{"Int", 42, "42"},
		{"Int64", int64(8766), "8766"},
		{"Float", 0.3567, "0.3567"},
		{"Float whole", 60.0, "60"},
		{"Timestamp", Timestamp("2023-12-31T00:00:00"), `datetime("2023-12-31T00:00:00")`},
		{"Empty timestamp", Timestamp(""), "NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Literal(tt.input))
		})
	}
}

func TestPropsOrdering(t *testing.T) {
	p := Props{
		{Name: "company_name", Value: "甲科技"},
		{Name: "shareholding_ratio", Value: 0.6},
		{Name: "is_major", Value: true},
	}
	assert.Equal(t, "company_name, shareholding_ratio, is_major", p.Names())
	assert.Equal(t, `"甲科技", 0.6, true`, p.Values())
}

func TestPropsPredicate(t *testing.T) {
	p := Props{
		{Name: "company_name", Value: "甲科技"},
		{Name: "ratio", Value: 0.6},
		{Name: "delist_date", Value: nil},
	}
	want := `a.Company.company_name == "甲科技" AND a.Company.ratio == 0.6 AND a.Company.delist_date IS NULL`
	assert.Equal(t, want, p.Predicate("a.Company"))

	empty := Props{}
	assert.Empty(t, empty.Predicate("e"))
}

// Values that insert as NULL must compare with IS NULL: an equality
// against NULL never matches in nGQL, so an existence check built from it
// would miss the stored edge and re-insert it on every reprocess.
func TestPropsPredicateEmptyTimestamp(t *testing.T) {
	p := Props{
		{Name: "trade_ratio", Value: 0.125},
		{Name: "report_date", Value: Timestamp("")},
	}
	assert.Equal(t, "e.trade_ratio == 0.125 AND e.report_date IS NULL", p.Predicate("e"))

	dated := Props{{Name: "report_date", Value: Timestamp("2023-12-31T00:00:00")}}
	assert.Equal(t, `e.report_date == datetime("2023-12-31T00:00:00")`, dated.Predicate("e"))
}
