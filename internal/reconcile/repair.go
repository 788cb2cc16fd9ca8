package reconcile

import (
	"context"
	"fmt"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
)

// Repair re-inserts the missing edge of each pending defect and marks the
// row resolved on success. Returns how many defects were repaired.
func (j *Journal) Repair(ctx context.Context, store engine.Store, limit int) (int, error) {
	defects, err := j.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, d := range defects {
		from, to := d.SubsidiaryVID, d.ParentVID
		if d.MissingEdge == engine.EdgeParentOf {
			from, to = d.ParentVID, d.SubsidiaryVID
		}

		stored, err := d.Props()
		if err != nil {
			j.logger.Error("defect props unreadable, skipping", "id", d.ID, "error", err)
			continue
		}
		props := make(graph.Props, 0, len(stored))
		for _, p := range stored {
			v := p.Value
			// Datetime props round-trip through JSON as plain strings.
			if p.Name == "report_date" {
				if s, ok := v.(string); ok {
					v = graph.Timestamp(s)
				}
			}
			props = append(props, graph.Prop{Name: p.Name, Value: v})
		}

		if err := store.InsertEdge(ctx, d.MissingEdge, from, to, d.Rank, props); err != nil {
			j.logger.Error("defect repair failed",
				"id", d.ID, "parent", d.ParentName, "subsidiary", d.SubsidiaryName, "error", err)
			continue
		}
		if err := j.Resolve(ctx, d.ID); err != nil {
			return repaired, fmt.Errorf("mark defect %d resolved: %w", d.ID, err)
		}
		repaired++
		j.logger.Info("pair defect repaired",
			"id", d.ID, "parent", d.ParentName, "subsidiary", d.SubsidiaryName, "edge", d.MissingEdge)
	}
	return repaired, nil
}
