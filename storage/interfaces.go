package storage

import "rentalcars-watcher/models"

// DefaultHistoryLimit is the bounded-history capacity: on overflow the oldest
// records are evicted in arrival order.
const DefaultHistoryLimit = 500

// RunStore is the interface any history backend must satisfy. Appends are
// read-modify-write on the SQL backends and assume a single writer; the Redis
// backend trims atomically and survives concurrent writers.
type RunStore interface {
	Append(rec *models.RunRecord) error
	QueryByDateRange(pickupDate, dropoffDate string) ([]*models.RunRecord, error)
	All() ([]*models.RunRecord, error)
	Close() error
}

// ObservationWriter is the interface for persisting raw extraction output
// before any record-building, for auditing.
type ObservationWriter interface {
	WriteObservation(obs *models.PriceObservation) error
	Close() error
}
