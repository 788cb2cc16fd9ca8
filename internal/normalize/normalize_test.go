package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRatio(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"Percent form", "35.67%", 0.3567},
		{"Bare percent value", "35.67", 0.3567},
		{"Whole percent", "60%", 0.60},
		{"Hundred percent", "100%", 1.0},
		{"Fraction form", "3/20", 0.15},
		{"Full-width percent", "３５.６７％", 0.3567},
		{"With separators", "1,2.5%", 0.125},
		{"Empty", "", 0},
		{"Out of range", "150", 0},
		{"Out of range percent", "150%", 0},
		{"Negative", "-5%", 0},
		{"Garbage", "约三成", 0},
		{"Zero denominator", "1/0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ParseRatio(tt.input), 1e-9)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value float64
		unit  string
	}{
		{"Wan yuan", "1,000万元", 10000000, "元"},
		{"Yi yuan", "3.5亿元", 350000000, "元"},
		{"Qian shares", "200千股", 200000, "股"},
		{"Plain number", "1,000", 1000, ""},
		{"Plain yuan", "500元", 500, "元"},
		{"USD", "120万美元", 1200000, "美元"},
		{"Unknown unit dropped", "12万桶", 120000, ""},
		{"Empty", "", 0, ""},
		{"No digits", "若干", 0, ""},
		{"Full-width digits", "１，０００万元", 10000000, "元"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, u := ParseAmount(tt.input)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.unit, u)
		})
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"Plain", "123456", 123456},
		{"Half-width separators", "1,234,567", 1234567},
		{"Full-width separators", "１，２３４", 1234},
		{"Share suffix", "1,200,000股", 1200000},
		{"Negative", "-42", -42},
		{"Empty", "", 0},
		{"Garbage", "未披露", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseInteger(tt.input))
		})
	}
}

func TestDateToRank(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"Epoch", "2000-01-01", 0},
		{"Next day", "2000-01-02", 1},
		{"Slash form", "2000/01/02", 1},
		{"Compact form", "20000102", 1},
		{"Chinese suffixes", "2000年1月2日", 1},
		{"Year-month snaps to first", "2000-02", 31},
		{"Year snaps to January", "2001", 366},
		{"Empty is lowest", "", 0},
		{"Garbage is lowest", "第三季度", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DateToRank(tt.input))
		})
	}
}

func TestDateToRankMonotonic(t *testing.T) {
	dates := []string{"2020-01-01", "2021-06-30", "2021-12-31", "2023-12-31", "2024/06/30"}
	prev := int64(-1)
	for _, d := range dates {
		r := DateToRank(d)
		require.Greater(t, r, prev, "rank not monotonic at %q", d)
		prev = r
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2023-12-31T00:00:00", FormatTimestamp("2023-12-31"))
	assert.Equal(t, "2023-12-31T00:00:00", FormatTimestamp("2023年12月31日"))
	assert.Equal(t, "", FormatTimestamp(""))
}
