package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/normalize"
	"github.com/JustIsQi/supplierchainsgraph/internal/record"
)

// edgeParams is everything one ranked edge insert needs: endpoint keys for
// the insert, endpoint predicates for the existence check, and the
// normalized property set which doubles as the duplicate-detection
// predicate.
type edgeParams struct {
	kind     string
	fromTag  string
	fromVID  string
	fromPred graph.Props
	toTag    string
	toVID    string
	toPred   graph.Props
	rank     int64
	props    graph.Props
}

// ensureEdge inserts the edge unless an edge of the same kind, rank and
// full property set already connects endpoints matching the predicates.
// A different property snapshot at the same endpoints is a new historical
// state and inserts alongside the old one.
func (u *Upserter) ensureEdge(ctx context.Context, e edgeParams) error {
	exists, err := u.store.EdgeExists(ctx, e.fromTag, e.fromPred, e.toTag, e.toPred, e.kind, e.rank, e.props)
	if err != nil {
		return fmt.Errorf("%s existence check: %w", e.kind, err)
	}
	if exists {
		u.stats.edgesSkipped.Add(1)
		u.logger.Debug("edge already present", "edge", e.kind, "from", e.fromVID, "to", e.toVID, "rank", e.rank)
		return nil
	}
	if err := u.store.InsertEdge(ctx, e.kind, e.fromVID, e.toVID, e.rank, e.props); err != nil {
		return err
	}
	u.stats.edgesInserted.Add(1)
	return nil
}

func companyPred(name string) graph.Props {
	return graph.Props{{Name: "name", Value: name}}
}

func personPred(name string) graph.Props {
	return graph.Props{{Name: "name", Value: name}}
}

func stockPred(code string) graph.Props {
	return graph.Props{{Name: "code", Value: code}}
}

// UpsertCompanyInfo inserts the reporting company's vertex and its
// BASE_COMPANY_INFO snapshot self-loop for this report period.
func (u *Upserter) UpsertCompanyInfo(ctx context.Context, rec *record.Record) (string, error) {
	info := rec.CompanyInfo
	vid, err := u.ensureCompany(ctx, info.CompanyName, info.CompanyNameEn, info.CompanyAbbr)
	if err != nil {
		return "", err
	}

	period := rec.ReportLastDate
	assets, assetsUnit := normalize.ParseAmount(info.TotalAssets)
	capital, capitalUnit := normalize.ParseAmount(info.RegisteredCapital)

	err = u.ensureEdge(ctx, edgeParams{
		kind:     EdgeBaseCompanyInfo,
		fromTag:  TagCompany,
		fromVID:  vid,
		fromPred: companyPred(info.CompanyName),
		toTag:    TagCompany,
		toVID:    vid,
		toPred:   companyPred(info.CompanyName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "company_type", Value: info.CompanyType},
			{Name: "registration_place", Value: info.RegistrationPlace},
			{Name: "business_place", Value: info.BusinessPlace},
			{Name: "industry", Value: info.Industry},
			{Name: "business_scope", Value: info.BusinessScope},
			{Name: "qualification", Value: info.CompanyQualification},
			{Name: "total_assets", Value: assets},
			{Name: "total_assets_unit", Value: assetsUnit},
			{Name: "registered_capital", Value: capital},
			{Name: "registered_capital_unit", Value: capitalUnit},
			{Name: "is_bond_issuer", Value: info.IsBondIssuer},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
	if err != nil {
		return "", err
	}
	return vid, nil
}

// UpsertStockInfo expands a possibly comma-joined multi-code stock section
// into one Stock vertex and one BASE_STOCK_INFO edge per code. Parallel
// name and list-date lists are zipped positionally; on a length mismatch
// the configured policy either falls back to the first element or rejects
// the section.
func (u *Upserter) UpsertStockInfo(ctx context.Context, rec *record.Record, companyName, companyVID string) error {
	info := rec.StockInfo
	if info == nil || strings.TrimSpace(info.StockCode) == "" {
		return nil
	}

	codes := splitList(info.StockCode)
	names := splitList(info.StockName)
	listDates := splitList(info.ListDate)

	mismatched := len(names) != len(codes) || len(listDates) != len(codes)
	if mismatched && u.mismatch == MismatchReject {
		return fmt.Errorf("stock section rejected: %d codes vs %d names / %d list dates",
			len(codes), len(names), len(listDates))
	}
	if mismatched {
		u.logger.Warn("stock lists mismatched, falling back to first element",
			"codes", len(codes), "names", len(names), "list_dates", len(listDates))
	}

	period := rec.PeriodOrDefault("")
	rank := normalize.DateToRank(period)
	totalShares := normalize.ParseInteger(info.TotalShareCapital)
	circulating := normalize.ParseInteger(info.CirculatingShareCapital)

	var firstErr error
	for i, code := range codes {
		vid, err := u.ensureStock(ctx, code, zip(names, i), zip(listDates, i), *info)
		if err != nil {
			u.logger.Error("stock vertex failed", "code", code, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		err = u.ensureEdge(ctx, edgeParams{
			kind:     EdgeBaseStockInfo,
			fromTag:  TagStock,
			fromVID:  vid,
			fromPred: stockPred(code),
			toTag:    TagCompany,
			toVID:    companyVID,
			toPred:   companyPred(companyName),
			rank:     rank,
			props: graph.Props{
				{Name: "list_status", Value: info.ListStatus},
				{Name: "total_share_capital", Value: totalShares},
				{Name: "circulating_share_capital", Value: circulating},
				{Name: "risk_warning_status", Value: info.RiskWarningStatus},
				{Name: "risk_warning_time", Value: graph.Timestamp(normalize.FormatTimestamp(info.RiskWarningTime))},
				{Name: "cancel_risk_warning_time", Value: graph.Timestamp(normalize.FormatTimestamp(info.CancelRiskWarningTime))},
				{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
			},
		})
		if err != nil {
			u.logger.Error("stock edge failed", "code", code, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// UpsertPosition inserts the person vertex and their POSITION_INFO edge.
func (u *Upserter) UpsertPosition(ctx context.Context, rec *record.Record, companyName, companyVID string, p record.Person) error {
	personVID, err := u.ensurePerson(ctx, p)
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(p.ReportPeriod)
	compensation, compensationUnit := normalize.ParseAmount(p.Compensation)

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgePositionInfo,
		fromTag:  TagPerson,
		fromVID:  personVID,
		fromPred: personPred(p.PersonName),
		toTag:    TagCompany,
		toVID:    companyVID,
		toPred:   companyPred(companyName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "position", Value: p.Position},
			{Name: "is_active", Value: p.IsActive},
			{Name: "compensation", Value: compensation},
			{Name: "compensation_unit", Value: compensationUnit},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// UpsertShareholder inserts the holder (person or company, per the
// declared type) and the SHAREHOLDER edge toward the reporting company.
func (u *Upserter) UpsertShareholder(ctx context.Context, rec *record.Record, companyName, companyVID string, sh record.Shareholder) error {
	var (
		holderVID  string
		holderTag  string
		holderPred graph.Props
		err        error
	)
	if sh.ShareholderType == "自然人" {
		holderTag = TagPerson
		holderPred = personPred(sh.Name)
		holderVID, err = u.ensurePerson(ctx, record.Person{PersonName: sh.Name})
	} else {
		holderTag = TagCompany
		holderPred = companyPred(sh.Name)
		holderVID, err = u.ensureCompany(ctx, sh.Name, "", "")
	}
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(sh.ReportPeriod)
	amount, amountUnit := normalize.ParseAmount(sh.ShareholdingAmount)
	if amountUnit == "" {
		amountUnit = sh.Currency
	}

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgeShareholder,
		fromTag:  holderTag,
		fromVID:  holderVID,
		fromPred: holderPred,
		toTag:    TagCompany,
		toVID:    companyVID,
		toPred:   companyPred(companyName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "shareholder_type", Value: sh.ShareholderType},
			{Name: "holding_ratio", Value: normalize.ParseRatio(sh.ShareholdingPercentage)},
			{Name: "vote_ratio", Value: normalize.ParseRatio(sh.VotePercentage)},
			{Name: "holding_amount", Value: amount},
			{Name: "holding_unit", Value: amountUnit},
			{Name: "is_major_shareholder", Value: sh.IsMajorShareholder},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// UpsertRelatedCompany inserts a RELATED_COMPANY edge from the related
// party toward the reporting company.
func (u *Upserter) UpsertRelatedCompany(ctx context.Context, rec *record.Record, companyName, companyVID string, rc record.RelatedCompany) error {
	relatedVID, err := u.ensureCompany(ctx, rc.CompanyName, "", "")
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(rc.ReportPeriod)

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgeRelatedCompany,
		fromTag:  TagCompany,
		fromVID:  relatedVID,
		fromPred: companyPred(rc.CompanyName),
		toTag:    TagCompany,
		toVID:    companyVID,
		toPred:   companyPred(companyName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "related_company_type", Value: rc.RelatedCompanyType},
			{Name: "relationship", Value: rc.Relationship},
			{Name: "ratio", Value: normalize.ParseRatio(rc.RelationshipPercentage)},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// UpsertSupplier inserts a SUPPLIER edge from the supplier toward the
// reporting company.
func (u *Upserter) UpsertSupplier(ctx context.Context, rec *record.Record, companyName, companyVID string, s record.Supplier) error {
	supplierVID, err := u.ensureCompany(ctx, s.SupplierName, "", "")
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(s.ReportPeriod)
	amount, amountUnit := normalize.ParseAmount(s.SupplyAmount)
	if amountUnit == "" {
		amountUnit = s.Currency
	}

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgeSupplier,
		fromTag:  TagCompany,
		fromVID:  supplierVID,
		fromPred: companyPred(s.SupplierName),
		toTag:    TagCompany,
		toVID:    companyVID,
		toPred:   companyPred(companyName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "trade_amount", Value: amount},
			{Name: "trade_unit", Value: amountUnit},
			{Name: "trade_ratio", Value: normalize.ParseRatio(s.SupplyPercentage)},
			{Name: "content", Value: s.SupplyContent},
			{Name: "is_major_supplier", Value: s.IsMajorSupplier},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// UpsertCustomer inserts a CUSTOMER edge from the reporting company toward
// the customer.
func (u *Upserter) UpsertCustomer(ctx context.Context, rec *record.Record, companyName, companyVID string, c record.Customer) error {
	customerVID, err := u.ensureCompany(ctx, c.CustomerName, "", "")
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(c.ReportPeriod)
	amount, amountUnit := normalize.ParseAmount(c.CustomerAmount)
	if amountUnit == "" {
		amountUnit = c.Currency
	}

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgeCustomer,
		fromTag:  TagCompany,
		fromVID:  companyVID,
		fromPred: companyPred(companyName),
		toTag:    TagCompany,
		toVID:    customerVID,
		toPred:   companyPred(c.CustomerName),
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "trade_amount", Value: amount},
			{Name: "trade_unit", Value: amountUnit},
			{Name: "trade_ratio", Value: normalize.ParseRatio(c.CustomerPercentage)},
			{Name: "content", Value: c.BusinessContent},
			{Name: "is_major_customer", Value: c.IsMajorCustomer},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// UpsertSegment inserts the Product vertex and the company's
// MAIN_BUSINESS_COMPOSITION edge toward it.
func (u *Upserter) UpsertSegment(ctx context.Context, rec *record.Record, companyName, companyVID string, seg record.BusinessSegment) error {
	productVID, err := u.ensureProduct(ctx, companyName, seg)
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(seg.ReportPeriod)
	revenue, revenueUnit := normalize.ParseAmount(seg.Revenue)
	cost, _ := normalize.ParseAmount(seg.Cost)
	grossProfit, _ := normalize.ParseAmount(seg.GrossProfit)
	if revenueUnit == "" {
		revenueUnit = seg.Currency
	}

	return u.ensureEdge(ctx, edgeParams{
		kind:     EdgeMainBusiness,
		fromTag:  TagCompany,
		fromVID:  companyVID,
		fromPred: companyPred(companyName),
		toTag:    TagProduct,
		toVID:    productVID,
		toPred:   graph.Props{{Name: "name", Value: seg.ProductName}},
		rank:     normalize.DateToRank(period),
		props: graph.Props{
			{Name: "revenue", Value: revenue},
			{Name: "revenue_unit", Value: revenueUnit},
			{Name: "revenue_ratio", Value: normalize.ParseRatio(seg.RevenuePercentage)},
			{Name: "cost", Value: cost},
			{Name: "gross_profit", Value: grossProfit},
			{Name: "gross_margin", Value: normalize.ParseRatio(seg.GrossProfitMargin)},
			{Name: "country", Value: seg.Country},
			{Name: "description", Value: seg.BusinessDescription},
			{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
		},
	})
}

// splitList splits a comma-joined field, tolerating both half-width and
// full-width commas, and trims each element.
func splitList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// zip picks the i-th element, falling back to the first when the parallel
// list is shorter than the code list.
func zip(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	if len(list) > 0 {
		return list[0]
	}
	return ""
}
