package engine

import (
	"context"
	"errors"

	"github.com/JustIsQi/supplierchainsgraph/internal/identity"
	"github.com/JustIsQi/supplierchainsgraph/internal/record"
)

// ProcessRecord materializes one extraction record into the graph. The
// reporting company anchors everything; without a usable company name the
// record is unprocessable. Sections are independent: a failure in one is
// logged and skipped, the rest still land. The returned error is the first
// section failure, for visibility, after all sections have been attempted.
func (u *Upserter) ProcessRecord(ctx context.Context, rec *record.Record) error {
	if rec.CompanyInfo == nil {
		return ErrNoCompany
	}
	companyName := rec.CompanyInfo.CompanyName
	if _, err := identity.Resolve(companyName); err != nil {
		return ErrNoCompany
	}

	companyVID, err := u.UpsertCompanyInfo(ctx, rec)
	if err != nil {
		return err
	}

	var firstErr error
	fail := func(section string, err error) {
		if errors.Is(err, identity.ErrEmptyName) {
			u.logger.Warn("section entry skipped, unusable name", "section", section, "error", err)
			return
		}
		u.logger.Error("section entry failed", "section", section, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := u.UpsertStockInfo(ctx, rec, companyName, companyVID); err != nil {
		fail("stock_info", err)
	}
	for _, p := range rec.Persons {
		if err := u.UpsertPosition(ctx, rec, companyName, companyVID, p); err != nil {
			fail("persons", err)
		}
	}
	for _, sh := range rec.MajorShareholders {
		if err := u.UpsertShareholder(ctx, rec, companyName, companyVID, sh); err != nil {
			fail("major_shareholders", err)
		}
	}
	for _, sub := range rec.Subsidiaries {
		if err := u.UpsertSubsidiary(ctx, rec, companyName, companyVID, sub); err != nil {
			fail("subsidiaries", err)
		}
	}
	for _, rc := range rec.RelatedCompanies {
		if err := u.UpsertRelatedCompany(ctx, rec, companyName, companyVID, rc); err != nil {
			fail("related_companies", err)
		}
	}
	for _, s := range rec.MajorSuppliers {
		if err := u.UpsertSupplier(ctx, rec, companyName, companyVID, s); err != nil {
			fail("major_suppliers", err)
		}
	}
	for _, c := range rec.MajorCustomers {
		if err := u.UpsertCustomer(ctx, rec, companyName, companyVID, c); err != nil {
			fail("major_customers", err)
		}
	}
	for _, seg := range rec.MainBusinessComposition {
		if err := u.UpsertSegment(ctx, rec, companyName, companyVID, seg); err != nil {
			fail("main_business_composition", err)
		}
	}
	return firstErr
}
