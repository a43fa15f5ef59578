package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
)

// BuildUpsert renders the insert-or-update statement for one record keyed by
// company_name. The statement returns true when a new row was inserted.
func BuildUpsert(r *company.Record) (string, []any) {
	b := db.NewQuery()
	values := []string{
		b.Bind(r.Name),
		b.Bind(nullInt(r.FoundedYear)),
		b.Bind(nullString(r.Location)),
		b.Bind(nullString(r.Industry)),
		b.Bind(nullString(r.LatestFunding)),
		b.Bind(nullString(r.Website)),
		b.Bind(nullString(r.LinkedIn)),
		b.Bind(nullString(r.Description)),
		b.Bind(nullString(r.EmbeddingText)),
		b.Bind(r.Embedding.PgLiteral()) + "::vector",
	}

	query := `INSERT INTO companies (company_name, founded_year, location, industry, latest_funding,
	website, linkedin, description, embedding_text, embedding)
VALUES (` + strings.Join(values, ", ") + `)
ON CONFLICT (company_name) DO UPDATE SET
	founded_year = EXCLUDED.founded_year,
	location = EXCLUDED.location,
	industry = EXCLUDED.industry,
	latest_funding = EXCLUDED.latest_funding,
	website = EXCLUDED.website,
	linkedin = EXCLUDED.linkedin,
	description = EXCLUDED.description,
	embedding_text = EXCLUDED.embedding_text,
	embedding = EXCLUDED.embedding,
	updated_at = now()
RETURNING (xmax = 0) AS created`
	return query, b.Args()
}

// UpsertCompany inserts or replaces a corpus record by name.
func (s *Store) UpsertCompany(ctx context.Context, r *company.Record) (bool, error) {
	if r.Name == "" {
		return false, &db.Error{Op: db.OpUpsert, Err: fmt.Errorf("company_name is required")}
	}

	query, args := BuildUpsert(r)

	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	var created bool
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&created); err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: classify(ctx, err)}
	}
	return created, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
