package services

import (
	"fmt"
	"time"

	"rentalcars-watcher/config"
	"rentalcars-watcher/models"
	"rentalcars-watcher/storage"
	"rentalcars-watcher/utils"
)

// Ingestor validates run records and appends them to the store. Store
// failures propagate to the caller; a run is never silently dropped.
type Ingestor struct {
	store  storage.RunStore
	logger *utils.Logger
}

func NewIngestor(store storage.RunStore, logger *utils.Logger) *Ingestor {
	return &Ingestor{store: store, logger: logger}
}

// BuildRecord turns one extraction pass into a persistable RunRecord. A pass
// that found nothing still yields a valid record with NumOffers 0 and absent
// price fields, so "attempted but blocked" stays distinguishable from "never
// attempted".
func BuildRecord(obs *models.PriceObservation) *models.RunRecord {
	rec := &models.RunRecord{
		RunAt:       obs.ObservedAt,
		PickupDate:  obs.PickupDate,
		DropoffDate: obs.DropoffDate,
		RentalDays:  obs.RentalDays,
		NumOffers:   len(obs.Prices),
		URL:         obs.URL,
	}
	if rec.RunAt.IsZero() {
		rec.RunAt = time.Now().UTC()
	}
	if min, ok := obs.MinPrice(); ok && obs.RentalDays > 0 {
		perDay := min / float64(obs.RentalDays)
		rec.MinTotalPrice = &min
		rec.MinPricePerDay = &perDay
	}
	return rec
}

// ValidateRecord rejects malformed records before persistence. Nothing is
// partially persisted: validation runs fully up front.
func ValidateRecord(rec *models.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("validate: nil record")
	}
	if _, err := time.Parse(config.DateLayout, rec.PickupDate); err != nil {
		return fmt.Errorf("validate: bad pickup_date %q: %w", rec.PickupDate, err)
	}
	if _, err := time.Parse(config.DateLayout, rec.DropoffDate); err != nil {
		return fmt.Errorf("validate: bad dropoff_date %q: %w", rec.DropoffDate, err)
	}
	if rec.RentalDays < 1 {
		return fmt.Errorf("validate: rental_days must be >= 1, got %d", rec.RentalDays)
	}
	if rec.NumOffers < 0 {
		return fmt.Errorf("validate: num_offers must be >= 0, got %d", rec.NumOffers)
	}
	if rec.MinTotalPrice != nil && *rec.MinTotalPrice <= 0 {
		return fmt.Errorf("validate: min_total_price must be positive, got %v", *rec.MinTotalPrice)
	}
	if rec.MinPricePerDay != nil && rec.MinTotalPrice == nil {
		return fmt.Errorf("validate: min_price_per_day present without min_total_price")
	}
	return nil
}

// Ingest validates and persists one record. The per-day price is derived
// from the total when a caller omitted it.
func (i *Ingestor) Ingest(rec *models.RunRecord) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	if rec.RunAt.IsZero() {
		rec.RunAt = time.Now().UTC()
	}
	if rec.MinTotalPrice != nil && rec.MinPricePerDay == nil {
		perDay := *rec.MinTotalPrice / float64(rec.RentalDays)
		rec.MinPricePerDay = &perDay
	}
	if err := i.store.Append(rec); err != nil {
		return fmt.Errorf("ingest: append: %w", err)
	}
	i.logger.Info("[ingest] Saved run %s → %s (%d offers)", rec.PickupDate, rec.DropoffDate, rec.NumOffers)
	return nil
}
