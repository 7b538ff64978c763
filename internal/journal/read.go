package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Filter narrows Entries. Zero fields match everything.
type Filter struct {
	Name       string
	Identifier string
	LoadID     string
	AfterSeq   int64
	Limit      int
}

// Entries returns matching entries ordered by sequence number.
// It returns an empty slice, not nil, when nothing matches.
func (j *Journal) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, "name = ?")
		args = append(args, f.Name)
	}
	if f.Identifier != "" {
		where = append(where, "identifier = ?")
		args = append(args, f.Identifier)
	}
	if f.LoadID != "" {
		where = append(where, "load_id = ?")
		args = append(args, f.LoadID)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `SELECT seq, name, identifier, uri, async, status, load_id, payload FROM lifecycle_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest stored sequence number, 0 for an empty journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM lifecycle_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	if err := rows.Scan(&e.Seq, &e.Name, &e.Identifier, &e.URI, &e.Async, &e.Status, &e.LoadID, &e.Payload); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	return e, nil
}
