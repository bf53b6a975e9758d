package simulation

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// CatalogName is the database file kept at the output root.
const CatalogName = "catalog.db"

// Run statuses as stored in the catalog.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	dir        TEXT NOT NULL,
	n          INTEGER NOT NULL,
	t_end_myr  REAL NOT NULL,
	seed       INTEGER NOT NULL,
	status     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// RunRecord is one catalog row.
type RunRecord struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Dir       string
	N         int
	TEndMyr   float64
	Seed      int64
	Status    string
}

// Catalog indexes runs at an output root in catalog.db.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates <root>/catalog.db. Schema creation is
// idempotent, so concurrent runs can share the root.
func OpenCatalog(root string) (*Catalog, error) {
	db, err := sql.Open("sqlite", filepath.Join(root, CatalogName))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog pragma: %w", err)
		}
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Insert registers a run before its heavy work starts. A missing ID or
// CreatedAt is filled in; the stored record is returned.
func (c *Catalog) Insert(ctx context.Context, rec RunRecord) (RunRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusRunning
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at, dir, n, t_end_myr, seed, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.Dir, rec.N, rec.TEndMyr, rec.Seed, rec.Status)
	if err != nil {
		return rec, fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Complete marks a run finished and stores its final metrics.
func (c *Catalog) Complete(ctx context.Context, id, status string, metrics map[string]float64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE runs SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete run %s: unknown run", id)
	}
	for name, value := range metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metrics (run_id, name, value) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, name) DO UPDATE SET value = excluded.value`,
			id, name, value); err != nil {
			return fmt.Errorf("store metric %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// List returns all runs, newest first.
func (c *Catalog) List(ctx context.Context) ([]RunRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, created_at, dir, n, t_end_myr, seed, status
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get resolves a run by exact ID, unique ID prefix, or exact name.
func (c *Catalog) Get(ctx context.Context, ref string) (RunRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, created_at, dir, n, t_end_myr, seed, status
		 FROM runs WHERE id = ?1 OR id LIKE ?1 || '%' OR name = ?1
		 ORDER BY created_at DESC`, ref)
	if err != nil {
		return RunRecord{}, err
	}
	defer rows.Close()

	var matches []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return RunRecord{}, err
		}
		if rec.ID == ref {
			return rec, nil
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, err
	}
	switch len(matches) {
	case 0:
		return RunRecord{}, fmt.Errorf("no run matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return RunRecord{}, fmt.Errorf("%d runs match %q, use a longer prefix", len(matches), ref)
	}
}

// Metrics returns the stored metrics of one run.
func (c *Catalog) Metrics(ctx context.Context, id string) (map[string]float64, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, value FROM metrics WHERE run_id = ? ORDER BY name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (RunRecord, error) {
	var rec RunRecord
	var created string
	if err := rows.Scan(&rec.ID, &rec.Name, &created, &rec.Dir,
		&rec.N, &rec.TEndMyr, &rec.Seed, &rec.Status); err != nil {
		return rec, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return rec, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
