package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

type ftsTable struct {
	recordType string
	table      string
	snippetCol string
}

var ftsTables = []ftsTable{
	{"TODO", "tasks", "notes"},
	{"HEALTH", "health_entries", "value"},
	{"NOTE", "notes", "body"},
	{"FINANCE", "financial_entries", "category"},
}

// Search executes a UNION ALL query across the four record tables using
// plainto_tsquery and ts_rank, with ts_headline for snippets. $1 is the
// query text, $2 the person id scope.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || len(q.PersonIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.PersonIDs}

	var subQueries []string
	for _, t := range ftsTables {
		if q.FilterType != "" && q.FilterType != t.recordType {
			continue
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT '%s'::text AS type, r.id, r.person_id, r.title,
				ts_headline('english', coalesce(r.%s, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(r.fts, %s) AS rank
			FROM %s r
			WHERE r.fts @@ %s AND r.person_id = ANY($2)`,
			t.recordType, t.snippetCol, tsQuery, tsQuery, t.table, tsQuery))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, person_id, title, snippet
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Type, &r.ID, &r.PersonID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every record in searchable form for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]Document, error) {
	queries := []struct {
		recordType string
		sql        string
	}{
		{"TODO", `SELECT id, person_id, title, coalesce(notes, '') FROM tasks`},
		{"HEALTH", `SELECT id, person_id, title, coalesce(kind, '') || ' ' || coalesce(value, '') FROM health_entries`},
		{"NOTE", `SELECT id, person_id, title, coalesce(body, '') FROM notes`},
		{"FINANCE", `SELECT id, person_id, title, coalesce(category, '') FROM financial_entries`},
	}

	var docs []Document
	for _, q := range queries {
		rows, err := p.db.QueryContext(ctx, q.sql)
		if err != nil {
			return nil, fmt.Errorf("load %s records: %w", q.recordType, err)
		}
		for rows.Next() {
			doc := Document{Type: q.recordType}
			if err := rows.Scan(&doc.ID, &doc.PersonID, &doc.Title, &doc.Body); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s record: %w", q.recordType, err)
			}
			docs = append(docs, doc)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate %s records: %w", q.recordType, err)
		}
		rows.Close()
	}
	return docs, nil
}
