package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
)

const companyColumns = `company_name, founded_year, location, industry, latest_funding,
	website, linkedin, description`

// companyRow mirrors the projected columns of the companies table.
type companyRow struct {
	Name          string          `db:"company_name"`
	FoundedYear   sql.NullInt64   `db:"founded_year"`
	Location      sql.NullString  `db:"location"`
	Industry      sql.NullString  `db:"industry"`
	LatestFunding sql.NullString  `db:"latest_funding"`
	Website       sql.NullString  `db:"website"`
	LinkedIn      sql.NullString  `db:"linkedin"`
	Description   sql.NullString  `db:"description"`
	Distance      sql.NullFloat64 `db:"distance"`
}

func (r companyRow) toRecord() company.Record {
	return company.Record{
		Name:          r.Name,
		FoundedYear:   int(r.FoundedYear.Int64),
		Location:      r.Location.String,
		Industry:      r.Industry.String,
		LatestFunding: r.LatestFunding.String,
		Website:       r.Website.String,
		LinkedIn:      r.LinkedIn.String,
		Description:   r.Description.String,
	}
}

// BuildKNN renders the single ranked query for q. Binding order is
// [vector] + filter params in predicate order + [limit].
func BuildKNN(q *db.KNNQuery) (string, []any, error) {
	if q.Limit <= 0 {
		return "", nil, fmt.Errorf("limit %d: %w", q.Limit, domain.ErrInvalidLimit)
	}

	b := db.NewQuery()
	distanceExpr := fmt.Sprintf("(embedding %s %s::vector)", q.Metric.Operator(), b.Bind(q.Vector.PgLiteral()))

	b.Where("embedding IS NOT NULL")
	params := q.Filters.Params()
	for i, p := range q.Filters.Predicates() {
		column := p.Column
		if column == filter.ColumnDistance {
			column = distanceExpr
		}
		b.Where(p.Template(column), storageValue(params[i]))
	}
	if err := b.Err(); err != nil {
		return "", nil, err
	}

	limit := b.Bind(q.Limit)
	query := fmt.Sprintf(
		"SELECT %s,\n\t%s AS distance\nFROM companies\nWHERE %s\nORDER BY distance ASC, id ASC\nLIMIT %s",
		companyColumns, distanceExpr, b.WhereSQL(), limit,
	)
	return query, b.Args(), nil
}

// storageValue adapts domain parameter types to driver values.
func storageValue(v any) any {
	if set, ok := v.([]string); ok {
		return pq.StringArray(set)
	}
	return v
}

// SearchKNN runs the ranked nearest-neighbour query.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	query, args, err := BuildKNN(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpBuild, Err: err}
	}

	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	var rows []companyRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isVectorDimensionError(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %w", domain.ErrDimensionMismatch, err)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: classify(ctx, err)}
	}

	entries := make([]db.SearchEntry, 0, len(rows))
	for _, r := range rows {
		if !r.Distance.Valid {
			return nil, &db.Error{Op: db.OpScan, Err: fmt.Errorf("null distance for %s", strconv.Quote(r.Name))}
		}
		entries = append(entries, db.SearchEntry{Record: r.toRecord(), Distance: r.Distance.Float64})
	}
	return &db.SearchResult{Entries: entries}, nil
}
