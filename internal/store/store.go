// Package store handles SQLite persistence of load attempts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/gaelchart/internal/loader"
	"github.com/verte-zerg/gaelchart/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoDataset is returned when no successful load has been recorded.
var ErrNoDataset = errors.New("no stored dataset")

// Store wraps SQLite access for load history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS loads (
			id INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			path TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			year_count INTEGER NOT NULL,
			error TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS load_rows (
			load_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			year TEXT NOT NULL,
			county TEXT NOT NULL,
			percentage REAL NOT NULL,
			PRIMARY KEY (load_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_loads_finished_at ON loads(finished_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordLoad stores one load attempt. Rows are stored only when ds is non-nil and
// the attempt succeeded.
func (s *Store) RecordLoad(ctx context.Context, rec model.LoadRecord, ds *model.Dataset) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO loads (source, path, row_count, year_count, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Source,
		string(rec.Path),
		rec.Rows,
		rec.Years,
		rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if ds != nil && rec.Error == "" && len(ds.Rows) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO load_rows (load_id, seq, year, county, percentage) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, row := range ds.Rows {
			if _, err := stmt.ExecContext(ctx, id, i, row.Year, row.County, row.Percentage); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListLoads returns the most recent load attempts, newest first. A non-positive
// limit returns every attempt.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]model.LoadRecord, error) {
	query := `SELECT id, source, path, row_count, year_count, error, started_at, finished_at
		FROM loads ORDER BY finished_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LoadRecord
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LatestDataset rebuilds the dataset of the most recent successful load.
func (s *Store) LatestDataset(ctx context.Context) (model.Dataset, model.LoadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, path, row_count, year_count, error, started_at, finished_at
		 FROM loads WHERE error = '' AND row_count > 0
		 ORDER BY finished_at DESC, id DESC LIMIT 1`)
	rec, err := scanLoad(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, model.LoadRecord{}, ErrNoDataset
	}
	if err != nil {
		return model.Dataset{}, model.LoadRecord{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT year, county, percentage FROM load_rows WHERE load_id = ? ORDER BY seq`, rec.ID)
	if err != nil {
		return model.Dataset{}, model.LoadRecord{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.Row
	for rows.Next() {
		var r model.Row
		if err := rows.Scan(&r.Year, &r.County, &r.Percentage); err != nil {
			return model.Dataset{}, model.LoadRecord{}, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return model.Dataset{}, model.LoadRecord{}, err
	}
	if len(out) == 0 {
		return model.Dataset{}, model.LoadRecord{}, fmt.Errorf("load %d: %w", rec.ID, ErrNoDataset)
	}
	return loader.NewDataset(out, rec.Source, model.PathStore), rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(sc scanner) (model.LoadRecord, error) {
	var (
		rec      model.LoadRecord
		path     string
		started  string
		finished string
	)
	if err := sc.Scan(&rec.ID, &rec.Source, &path, &rec.Rows, &rec.Years, &rec.Error, &started, &finished); err != nil {
		return model.LoadRecord{}, err
	}
	rec.Path = model.LoadPath(path)
	var err error
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return model.LoadRecord{}, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return model.LoadRecord{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return rec, nil
}
