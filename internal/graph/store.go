package graph

import (
	"context"
	"fmt"
	"log/slog"

	nebula "github.com/vesoft-inc/nebula-go/v3"
)

// Store is one session's view of the graph: existence checks and inserts.
// Writes are append-only; there is no update or delete path here. This is
// a deliberate check-then-act protocol without store-side transactions;
// under concurrent identical input the worst case is a harmless duplicate
// edge at the same rank, which we accept as a weak-consistency trade-off.
type Store struct {
	session *nebula.Session
	logger  *slog.Logger
}

// Execute runs one nGQL statement and folds protocol-level failures into
// the returned error.
func (s *Store) Execute(ctx context.Context, stmt string) (*nebula.ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs, err := s.session.Execute(stmt)
	if err != nil {
		return nil, fmt.Errorf("nebula execute failed: %w", err)
	}
	if !rs.IsSucceed() {
		return nil, fmt.Errorf("nebula statement rejected: %s", rs.GetErrorMsg())
	}
	return rs, nil
}

// VertexExists reports whether a vertex with the given key is present.
func (s *Store) VertexExists(ctx context.Context, vid string) (bool, error) {
	stmt := fmt.Sprintf(`MATCH (v) WHERE id(v) == %s RETURN v LIMIT 1`, Literal(vid))
	rs, err := s.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("vertex existence check failed for %s: %w", vid, err)
	}
	return rs.GetRowSize() > 0, nil
}

// InsertVertex inserts one tagged vertex.
func (s *Store) InsertVertex(ctx context.Context, tag, vid string, props Props) error {
	stmt := fmt.Sprintf("INSERT VERTEX %s(%s) VALUES %s: (%s)",
		tag, props.Names(), Literal(vid), props.Values())
	if _, err := s.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("insert vertex %s %s failed: %w", tag, vid, err)
	}
	s.logger.Debug("vertex inserted", "tag", tag, "vid", vid)
	return nil
}

// EdgeExists checks for an edge of the given kind whose endpoints match
// the tag-qualified predicates and whose rank and own properties match
// exactly. Two edges of the same kind between the same vertices with
// different property snapshots are different historical states; only a
// full match counts as a duplicate.
func (s *Store) EdgeExists(ctx context.Context, fromTag string, fromPred Props, toTag string, toPred Props, edge string, rank int64, edgePred Props) (bool, error) {
	where := fmt.Sprintf("rank(e) == %d", rank)
	if p := fromPred.Predicate("a." + fromTag); p != "" {
		where += " AND " + p
	}
	if p := toPred.Predicate("b." + toTag); p != "" {
		where += " AND " + p
	}
	if p := edgePred.Predicate("e"); p != "" {
		where += " AND " + p
	}

	stmt := fmt.Sprintf(`MATCH (a:%s)-[e:%s]->(b:%s) WHERE %s RETURN e LIMIT 1`,
		fromTag, edge, toTag, where)
	rs, err := s.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("edge existence check failed for %s: %w", edge, err)
	}
	return rs.GetRowSize() > 0, nil
}

// InsertEdge inserts one ranked edge. Rank disambiguates parallel edges of
// the same kind between the same pair; the same relationship observed in a
// later report inserts at a higher rank instead of overwriting.
func (s *Store) InsertEdge(ctx context.Context, edge, from, to string, rank int64, props Props) error {
	stmt := fmt.Sprintf("INSERT EDGE %s(%s) VALUES %s -> %s @%d: (%s)",
		edge, props.Names(), Literal(from), Literal(to), rank, props.Values())
	if _, err := s.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("insert edge %s %s -> %s failed: %w", edge, from, to, err)
	}
	s.logger.Debug("edge inserted", "edge", edge, "from", from, "to", to, "rank", rank)
	return nil
}

// Close releases the underlying session back to the pool.
func (s *Store) Close() {
	s.session.Release()
}
