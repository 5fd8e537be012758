package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"rentalcars-watcher/models"
)

// PostgresStore persists run history to PostgreSQL, for deployments where
// the watcher runs next to an existing database.
type PostgresStore struct {
	db    *sql.DB
	limit int
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store. The ping is retried because the database
// container may still be starting.
func NewPostgresStore(dsn string, limit int) (*PostgresStore, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db, limit: limit}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id                SERIAL PRIMARY KEY,
			run_at            TIMESTAMPTZ NOT NULL,
			pickup_date       VARCHAR(10) NOT NULL,
			dropoff_date      VARCHAR(10) NOT NULL,
			rental_days       INTEGER     NOT NULL,
			min_total_price   NUMERIC(10,2),
			min_price_per_day NUMERIC(10,2),
			num_offers        INTEGER     NOT NULL DEFAULT 0,
			url               TEXT        NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_dates ON runs(pickup_date, dropoff_date);
	`)
	return err
}

// Append inserts one record, then evicts the oldest rows past the history
// limit. Same single-writer caveat as the SQLite backend.
func (ps *PostgresStore) Append(rec *models.RunRecord) error {
	_, err := ps.db.Exec(`
		INSERT INTO runs (run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.RunAt.UTC(),
		rec.PickupDate,
		rec.DropoffDate,
		rec.RentalDays,
		nullableFloat(rec.MinTotalPrice),
		nullableFloat(rec.MinPricePerDay),
		rec.NumOffers,
		rec.URL,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	_, err = ps.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT $1)
	`, ps.limit)
	if err != nil {
		return fmt.Errorf("postgres: trim history: %w", err)
	}
	return nil
}

// QueryByDateRange returns all runs matching both dates exactly, in append
// order.
func (ps *PostgresStore) QueryByDateRange(pickupDate, dropoffDate string) ([]*models.RunRecord, error) {
	return ps.query(`
		SELECT id, run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url
		FROM runs WHERE pickup_date = $1 AND dropoff_date = $2 ORDER BY id
	`, pickupDate, dropoffDate)
}

// All returns the full history in append order.
func (ps *PostgresStore) All() ([]*models.RunRecord, error) {
	return ps.query(`
		SELECT id, run_at, pickup_date, dropoff_date, rental_days, min_total_price, min_price_per_day, num_offers, url
		FROM runs ORDER BY id
	`)
}

func (ps *PostgresStore) query(q string, args ...any) ([]*models.RunRecord, error) {
	rows, err := ps.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query runs: %w", err)
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		var (
			rec      models.RunRecord
			minTotal sql.NullFloat64
			minDay   sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.ID, &rec.RunAt, &rec.PickupDate, &rec.DropoffDate, &rec.RentalDays,
			&minTotal, &minDay, &rec.NumOffers, &rec.URL,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if minTotal.Valid {
			rec.MinTotalPrice = &minTotal.Float64
		}
		if minDay.Valid {
			rec.MinPricePerDay = &minDay.Float64
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
