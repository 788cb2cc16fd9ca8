// Package record defines the typed shape of one disclosure extraction.
// The upstream extraction step emits loosely-typed JSON; decoding into
// this closed set of section types means downstream code never branches
// on raw text shape. Numeric fields stay strings here; normalization
// happens in the engine, right before the store call.
package record

import (
	"encoding/json"
	"fmt"
)

// Record is one extracted filing: a company anchor plus its relationship
// sections. ReportLastDate is the default version anchor for any section
// that omits its own report period.
type Record struct {
	CompanyInfo             *CompanyInfo      `json:"company_info"`
	StockInfo               *StockInfo        `json:"stock_info"`
	Persons                 []Person          `json:"persons"`
	MajorShareholders       []Shareholder     `json:"major_shareholders"`
	Subsidiaries            []Subsidiary      `json:"subsidiaries"`
	RelatedCompanies        []RelatedCompany  `json:"related_companies"`
	MajorSuppliers          []Supplier        `json:"major_suppliers"`
	MajorCustomers          []Customer        `json:"major_customers"`
	MainBusinessComposition []BusinessSegment `json:"main_business_composition"`
	ReportLastDate          string            `json:"report_last_date"`
}

// CompanyInfo carries the reporting company's identity and the snapshot
// fields stored on the BASE_COMPANY_INFO self-loop.
type CompanyInfo struct {
	CompanyName          string `json:"company_name"`
	CompanyNameEn        string `json:"company_name_en"`
	CompanyAbbr          string `json:"company_abbr"`
	CompanyType          string `json:"company_type"`
	RegistrationPlace    string `json:"registration_place"`
	BusinessPlace        string `json:"business_place"`
	Industry             string `json:"industry"`
	BusinessScope        string `json:"business_scope"`
	CompanyQualification string `json:"company_qualification"`
	TotalAssets          string `json:"total_assets"`
	RegisteredCapital    string `json:"registered_capital"`
	IsBondIssuer         bool   `json:"is_bond_issuer"`
}

// StockInfo may carry multiple comma-joined stock codes with parallel
// comma-joined name and list-date fields; the engine zips them.
type StockInfo struct {
	StockCode               string `json:"stock_code"`
	StockName               string `json:"stock_name"`
	StockType               string `json:"stock_type"`
	Exchange                string `json:"exchange"`
	ListStatus              string `json:"list_status"`
	ListDate                string `json:"list_dt"`
	DelistDate              string `json:"list_edt"`
	TotalShareCapital       string `json:"total_share_capital"`
	CirculatingShareCapital string `json:"circulating_share_capital"`
	RiskWarningStatus       string `json:"risk_warning_status"`
	RiskWarningTime         string `json:"risk_warning_time"`
	CancelRiskWarningTime   string `json:"cancel_risk_warning_time"`
}

// Person is an officer or director plus their position at the company.
type Person struct {
	PersonName     string `json:"person_name"`
	PersonNameEn   string `json:"person_name_en"`
	Birth          string `json:"birth"`
	EducationLevel string `json:"education_level"`
	Sex            string `json:"sex"`
	Position       string `json:"position"`
	IsActive       bool   `json:"is_active"`
	Compensation   string `json:"compensation"`
	ReportPeriod   string `json:"report_period"`
}

// Shareholder is a holder of the reporting company; Type distinguishes
// natural persons from institutions.
type Shareholder struct {
	Name                   string `json:"name"`
	ShareholderType        string `json:"shareholder_type"`
	ShareholdingPercentage string `json:"shareholding_percentage"`
	VotePercentage         string `json:"vote_percentage"`
	ShareholdingAmount     string `json:"shareholding_amount"`
	Currency               string `json:"currency"`
	IsMajorShareholder     bool   `json:"is_major_shareholder"`
	ReportPeriod           string `json:"report_period"`
}

// Subsidiary is a company controlled by the reporting company.
type Subsidiary struct {
	SubsidiaryName      string `json:"subsidiary_name"`
	OwnershipPercentage string `json:"ownership_percentage"`
	VotePercentage      string `json:"vote_percentage"`
	RegistrationPlace   string `json:"registration_place"`
	BusinessScope       string `json:"business_scope"`
	ReportPeriod        string `json:"report_period"`
}

// RelatedCompany is a joint venture, associate or other related party.
type RelatedCompany struct {
	CompanyName            string `json:"company_name"`
	RelatedCompanyType     string `json:"related_company_type"`
	Relationship           string `json:"relationship"`
	RelationshipPercentage string `json:"relationship_percentage"`
	BusinessScope          string `json:"business_scope"`
	ReportPeriod           string `json:"report_period"`
}

// Supplier is a major upstream counterparty.
type Supplier struct {
	SupplierName     string `json:"supplier_name"`
	SupplyAmount     string `json:"supply_amount"`
	SupplyPercentage string `json:"supply_percentage"`
	Currency         string `json:"currency"`
	SupplyContent    string `json:"supply_content"`
	IsMajorSupplier  bool   `json:"is_major_supplier"`
	ReportPeriod     string `json:"report_period"`
}

// Customer is a major downstream counterparty.
type Customer struct {
	CustomerName       string `json:"customer_name"`
	CustomerAmount     string `json:"customer_amount"`
	CustomerPercentage string `json:"customer_percentage"`
	Currency           string `json:"currency"`
	BusinessContent    string `json:"business_content"`
	IsMajorCustomer    bool   `json:"is_major_customer"`
	ReportPeriod       string `json:"report_period"`
}

// BusinessSegment is one line of the main-business composition table.
type BusinessSegment struct {
	ProductName         string `json:"product_name"`
	BusinessType        string `json:"business_type"`
	Revenue             string `json:"revenue"`
	RevenuePercentage   string `json:"revenue_percentage"`
	Cost                string `json:"cost"`
	GrossProfit         string `json:"gross_profit"`
	GrossProfitMargin   string `json:"gross_profit_margin"`
	Currency            string `json:"currency"`
	Country             string `json:"country"`
	BusinessDescription string `json:"business_description"`
	ReportPeriod        string `json:"report_period"`
}

// Decode parses one extraction payload.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode extraction record: %w", err)
	}
	return &rec, nil
}

// PeriodOrDefault returns the section's own report period, falling back to
// the record-level report date. This single choice point feeds DateToRank
// everywhere, so "most recent observation" ordering is consistent
// store-wide.
func (r *Record) PeriodOrDefault(sectionPeriod string) string {
	if sectionPeriod != "" {
		return sectionPeriod
	}
	return r.ReportLastDate
}
