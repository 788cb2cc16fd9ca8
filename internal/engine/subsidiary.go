package engine

import (
	"context"
	"fmt"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/normalize"
	"github.com/JustIsQi/supplierchainsgraph/internal/record"
)

// UpsertSubsidiary writes the subsidiary relationship as a symmetric pair:
// SUBSIDIARY from the subsidiary to the parent and PARENT_OF from the
// parent back, both carrying the same rank and property set. A reader must
// never observe one direction without the other, so a missing side is
// retried once and any residual one-sided state is flagged for
// reconciliation rather than silently dropped.
func (u *Upserter) UpsertSubsidiary(ctx context.Context, rec *record.Record, parentName, parentVID string, sub record.Subsidiary) error {
	subVID, err := u.ensureCompany(ctx, sub.SubsidiaryName, "", "")
	if err != nil {
		return err
	}

	period := rec.PeriodOrDefault(sub.ReportPeriod)
	rank := normalize.DateToRank(period)
	props := graph.Props{
		{Name: "shareholding_ratio", Value: normalize.ParseRatio(sub.OwnershipPercentage)},
		{Name: "vote_ratio", Value: normalize.ParseRatio(sub.VotePercentage)},
		{Name: "registration_place", Value: sub.RegistrationPlace},
		{Name: "business_scope", Value: sub.BusinessScope},
		{Name: "report_date", Value: graph.Timestamp(normalize.FormatTimestamp(period))},
	}

	forward := edgeParams{
		kind:     EdgeSubsidiary,
		fromTag:  TagCompany,
		fromVID:  subVID,
		fromPred: companyPred(sub.SubsidiaryName),
		toTag:    TagCompany,
		toVID:    parentVID,
		toPred:   companyPred(parentName),
		rank:     rank,
		props:    props,
	}
	backward := edgeParams{
		kind:     EdgeParentOf,
		fromTag:  TagCompany,
		fromVID:  parentVID,
		fromPred: companyPred(parentName),
		toTag:    TagCompany,
		toVID:    subVID,
		toPred:   companyPred(sub.SubsidiaryName),
		rank:     rank,
		props:    props,
	}

	forwardErr := u.ensureEdge(ctx, forward)
	backwardErr := u.ensureEdge(ctx, backward)
	if forwardErr == nil && backwardErr == nil {
		return nil
	}

	// One retry for whichever side failed before declaring the pair broken.
	if forwardErr != nil {
		forwardErr = u.ensureEdge(ctx, forward)
	}
	if backwardErr != nil {
		backwardErr = u.ensureEdge(ctx, backward)
	}
	if forwardErr == nil && backwardErr == nil {
		return nil
	}

	// Both sides failed: nothing one-sided is in the store, plain error.
	if forwardErr != nil && backwardErr != nil {
		return fmt.Errorf("subsidiary pair %s/%s: %w", sub.SubsidiaryName, parentName, forwardErr)
	}

	missing := EdgeSubsidiary
	residual := forwardErr
	if backwardErr != nil {
		missing = EdgeParentOf
		residual = backwardErr
	}
	u.flagPairDefect(ctx, PairDefect{
		ParentVID:      parentVID,
		ParentName:     parentName,
		SubsidiaryVID:  subVID,
		SubsidiaryName: sub.SubsidiaryName,
		MissingEdge:    missing,
		Rank:           rank,
		Props:          props,
	}, residual)
	return fmt.Errorf("subsidiary pair %s/%s left one-sided, %s missing: %w",
		sub.SubsidiaryName, parentName, missing, residual)
}

func (u *Upserter) flagPairDefect(ctx context.Context, d PairDefect, cause error) {
	u.stats.pairDefects.Add(1)
	u.logger.Error("subsidiary pair one-sided after retry",
		"parent", d.ParentName, "subsidiary", d.SubsidiaryName,
		"missing_edge", d.MissingEdge, "rank", d.Rank, "error", cause)
	if u.recon == nil {
		return
	}
	if err := u.recon.FlagPairDefect(ctx, d); err != nil {
		u.logger.Error("pair defect journaling failed",
			"parent", d.ParentName, "subsidiary", d.SubsidiaryName, "error", err)
	}
}
