package engine

import (
	"context"
	"database/sql"
	"fmt"

	"ora-schema/internal/dialect"
)

// RowQuerier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NextSequenceValue consumes and returns the next value of seq.
func NextSequenceValue(ctx context.Context, q RowQuerier, d dialect.Dialect, seq string) (int64, error) {
	query, err := d.NextSequenceValueQuery(seq)
	if err != nil {
		return 0, err
	}
	var next int64
	if err := q.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read next value of %s: %w", seq, err)
	}
	return next, nil
}
