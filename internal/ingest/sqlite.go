package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/baysets/baysets/internal/errors"
)

// SQLiteSource is a PairSource backed by a SELECT query returning
// (item_id, feature_label) rows from a SQLite database, opened read-only.
type SQLiteSource struct {
	db   *sql.DB
	rows *sql.Rows
}

// NewSQLiteSource opens dsn and executes query, which must select exactly
// two columns: an integer item id and a text feature label, in that
// order. The returned source streams rows lazily via Next.
func NewSQLiteSource(ctx context.Context, dsn, query string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn+"?mode=ro")
	if err != nil {
		return nil, errors.IngestError("open sqlite source", err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		_ = db.Close()
		return nil, errors.IngestError(fmt.Sprintf("execute ingest query %q", query), err)
	}

	return &SQLiteSource{db: db, rows: rows}, nil
}

func (s *SQLiteSource) Next(ctx context.Context) (Pair, bool, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, false, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return Pair{}, false, errors.IngestError("read sqlite source", err)
		}
		return Pair{}, false, nil
	}

	var p Pair
	if err := s.rows.Scan(&p.ItemID, &p.FeatureLabel); err != nil {
		return Pair{}, false, errors.IngestError("scan sqlite source row", err)
	}
	return p, true, nil
}

func (s *SQLiteSource) Close() error {
	var firstErr error
	if s.rows != nil {
		if err := s.rows.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return errors.IngestError("close sqlite source", firstErr)
	}
	return nil
}
