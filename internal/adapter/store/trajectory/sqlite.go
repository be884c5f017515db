package trajectory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go.ngs.io/drifters/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS trajectories (
		particle_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		julian_date REAL NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		depth REAL NOT NULL,
		u REAL,
		v REAL,
		w REAL,
		temp REAL,
		sal REAL,
		PRIMARY KEY (particle_id, seq)
	);
`

// SQLiteWriter stores every particle's records in one trajectories table.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating trajectories table: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write replaces the stored records of the trajectory's particle.
func (w *SQLiteWriter) Write(ctx context.Context, tr domain.Trajectory) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trajectories WHERE particle_id = ?`, tr.ParticleID); err != nil {
		return fmt.Errorf("clearing particle %s: %w", tr.ParticleID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trajectories (particle_id, seq, timestamp, julian_date, lat, lon, depth, u, v, w, temp, sal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range tr.Records {
		_, err := stmt.ExecContext(ctx, tr.ParticleID, i, r.Time.UTC().Format(time.RFC3339), domain.JulianDate(r.Time),
			r.Lat, r.Lon, r.Depth, nullable(r.U), nullable(r.V), nullable(r.W), nullable(r.Temp), nullable(r.Sal))
		if err != nil {
			return fmt.Errorf("inserting record %d of %s: %w", i, tr.ParticleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trajectory %s: %w", tr.ParticleID, err)
	}
	return nil
}

// Records returns the stored records of a particle in order.
func (w *SQLiteWriter) Records(ctx context.Context, particleID string) ([]domain.Record, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT timestamp, lat, lon, depth, u, v, w, temp, sal
		FROM trajectories WHERE particle_id = ? ORDER BY seq`, particleID)
	if err != nil {
		return nil, fmt.Errorf("querying particle %s: %w", particleID, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			ts                  string
			u, v, wv, temp, sal sql.NullFloat64
		)
		r := domain.Record{ParticleID: particleID}
		if err := rows.Scan(&ts, &r.Lat, &r.Lon, &r.Depth, &u, &v, &wv, &temp, &sal); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if r.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		r.U, r.V, r.W, r.Temp, r.Sal = value(u), value(v), value(wv), value(temp), value(sal)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !domain.IsAbsent(v)}
}

func value(v sql.NullFloat64) float64 {
	if !v.Valid {
		return domain.Absent
	}
	return v.Float64
}
