package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rentalcars-watcher/models"
)

// SQLiteStore is the default history backend, a single-file database next to
// the binary. Appends trim the history to the configured limit in the same
// call, oldest rows first.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// schema migrations. ":memory:" is accepted for tests.
func NewSQLiteStore(path string, limit int) (*SQLiteStore, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// modernc sqlite is single-writer; one connection avoids lock contention
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, limit: limit}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_at            TEXT    NOT NULL,
			pickup_date       TEXT    NOT NULL,
			dropoff_date      TEXT    NOT NULL,
			rental_days       INTEGER NOT NULL,
			min_total_price   REAL,
			min_price_per_day REAL,
			num_offers        INTEGER NOT NULL DEFAULT 0,
			url               TEXT    NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_dates ON runs(pickup_date, dropoff_date);
	`)
	return err
}

// Append inserts one record and evicts the oldest rows past the history
// limit. Read-modify-write: correct only under the single-writer assumption.
func (s *SQLiteStore) Append(rec *models.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunAt.UTC().Format(time.RFC3339),
		rec.PickupDate,
		rec.DropoffDate,
		rec.RentalDays,
		nullableFloat(rec.MinTotalPrice),
		nullableFloat(rec.MinPricePerDay),
		rec.NumOffers,
		rec.URL,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}

	_, err = s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)
	`, s.limit)
	if err != nil {
		return fmt.Errorf("sqlite: trim history: %w", err)
	}
	return nil
}

// QueryByDateRange returns all runs matching both dates exactly, in append
// order.
func (s *SQLiteStore) QueryByDateRange(pickupDate, dropoffDate string) ([]*models.RunRecord, error) {
	return s.query(`
		SELECT id, run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url
		FROM runs WHERE pickup_date = ? AND dropoff_date = ? ORDER BY id
	`, pickupDate, dropoffDate)
}

// All returns the full history in append order.
func (s *SQLiteStore) All() ([]*models.RunRecord, error) {
	return s.query(`
		SELECT id, run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url
		FROM runs ORDER BY id
	`)
}

func (s *SQLiteStore) query(q string, args ...any) ([]*models.RunRecord, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query runs: %w", err)
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (*models.RunRecord, error) {
	var (
		rec      models.RunRecord
		runAt    string
		minTotal sql.NullFloat64
		minDay   sql.NullFloat64
	)
	if err := rows.Scan(
		&rec.ID, &runAt, &rec.PickupDate, &rec.DropoffDate, &rec.RentalDays,
		&minTotal, &minDay, &rec.NumOffers, &rec.URL,
	); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, runAt); err == nil {
		rec.RunAt = t
	}
	if minTotal.Valid {
		rec.MinTotalPrice = &minTotal.Float64
	}
	if minDay.Valid {
		rec.MinPricePerDay = &minDay.Float64
	}
	return &rec, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
