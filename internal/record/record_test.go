package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	data := []byte(`{
		"company_info": {"company_name": "测试科技股份有限公司", "is_bond_issuer": true},
		"stock_info": {"stock_code": "600000", "stock_name": "测试股份"},
		"persons": [{"person_name": "王强", "position": "董事长", "is_active": true}],
		"subsidiaries": [{"subsidiary_name": "子公司甲", "ownership_percentage": "60%"}],
		"report_last_date": "2023-12-31"
	}`)

	rec, err := Decode(data)
	require.NoError(t, err)

	require.NotNil(t, rec.CompanyInfo)
	assert.Equal(t, "测试科技股份有限公司", rec.CompanyInfo.CompanyName)
	assert.True(t, rec.CompanyInfo.IsBondIssuer)
	require.NotNil(t, rec.StockInfo)
	assert.Equal(t, "600000", rec.StockInfo.StockCode)
	require.Len(t, rec.Persons, 1)
	assert.Equal(t, "董事长", rec.Persons[0].Position)
	require.Len(t, rec.Subsidiaries, 1)
	assert.Equal(t, "60%", rec.Subsidiaries[0].OwnershipPercentage)
	assert.Equal(t, "2023-12-31", rec.ReportLastDate)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"company_info":`))
	assert.Error(t, err)
}

func TestPeriodOrDefault(t *testing.T) {
	rec := &Record{ReportLastDate: "2023-12-31"}
	assert.Equal(t, "2023-06-30", rec.PeriodOrDefault("2023-06-30"))
	assert.Equal(t, "2023-12-31", rec.PeriodOrDefault(""))
}
