package engine

import (
	"context"
	"fmt"

	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/identity"
	"github.com/JustIsQi/supplierchainsgraph/internal/record"
)

// ensureVertex resolves the key for name and inserts the vertex if it is
// not already present. Re-encountering the same name is a counted no-op.
func (u *Upserter) ensureVertex(ctx context.Context, tag, name string, props graph.Props) (string, error) {
	vid, err := identity.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("%s vertex: %w", tag, err)
	}

	exists, err := u.store.VertexExists(ctx, vid)
	if err != nil {
		return "", fmt.Errorf("%s existence check: %w", tag, err)
	}
	if exists {
		u.stats.verticesSkipped.Add(1)
		u.logger.Debug("vertex already present", "tag", tag, "name", name)
		return vid, nil
	}

	if err := u.store.InsertVertex(ctx, tag, vid, props); err != nil {
		return "", err
	}
	u.stats.verticesInserted.Add(1)
	return vid, nil
}

// ensureCompany inserts a Company vertex with minimal identity properties.
// First-seen counterparties (suppliers, subsidiaries, shareholders) come
// through here with nothing but a name; the substantive facts live on the
// edges.
func (u *Upserter) ensureCompany(ctx context.Context, name, englishName, abbr string) (string, error) {
	return u.ensureVertex(ctx, TagCompany, name, graph.Props{
		{Name: "name", Value: name},
		{Name: "english_name", Value: englishName},
		{Name: "abbreviation", Value: abbr},
	})
}

func (u *Upserter) ensurePerson(ctx context.Context, p record.Person) (string, error) {
	return u.ensureVertex(ctx, TagPerson, p.PersonName, graph.Props{
		{Name: "name", Value: p.PersonName},
		{Name: "english_name", Value: p.PersonNameEn},
		{Name: "birth_date", Value: p.Birth},
		{Name: "education_level", Value: p.EducationLevel},
		{Name: "sex", Value: p.Sex},
	})
}

// ensureStock keys the Stock vertex by its code; name and listing fields
// are the zipped per-code values from the stock section.
func (u *Upserter) ensureStock(ctx context.Context, code, name, listDate string, info record.StockInfo) (string, error) {
	return u.ensureVertex(ctx, TagStock, code, graph.Props{
		{Name: "code", Value: code},
		{Name: "name", Value: name},
		{Name: "type", Value: info.StockType},
		{Name: "exchange", Value: info.Exchange},
		{Name: "list_date", Value: listDate},
		{Name: "delist_date", Value: info.DelistDate},
	})
}

// ensureProduct keys the Product vertex by company + product name, because
// segment names like "主营业务" recur across unrelated companies.
func (u *Upserter) ensureProduct(ctx context.Context, companyName string, seg record.BusinessSegment) (string, error) {
	composite := companyName + "_" + seg.ProductName
	if seg.ProductName == "" {
		composite = "" // let identity.Resolve reject it
	}
	return u.ensureVertex(ctx, TagProduct, composite, graph.Props{
		{Name: "name", Value: seg.ProductName},
		{Name: "business_type", Value: seg.BusinessType},
	})
}
