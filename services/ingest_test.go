package services

import (
	"testing"
	"time"

	"rentalcars-watcher/models"
	"rentalcars-watcher/utils"
)

// memStore is an in-memory RunStore for exercising the ingestion path.
type memStore struct {
	records []*models.RunRecord
	failing bool
}

type storeErr string

func (e storeErr) Error() string { return string(e) }

func (m *memStore) Append(rec *models.RunRecord) error {
	if m.failing {
		return storeErr("store unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) QueryByDateRange(pickup, dropoff string) ([]*models.RunRecord, error) {
	var matched []*models.RunRecord
	for _, r := range m.records {
		if r.PickupDate == pickup && r.DropoffDate == dropoff {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (m *memStore) All() ([]*models.RunRecord, error) { return m.records, nil }
func (m *memStore) Close() error                      { return nil }

func TestBuildRecordDerivesPerDay(t *testing.T) {
	obs := &models.PriceObservation{
		Prices:      []float64{350, 420, 500},
		PickupDate:  "2026-09-15",
		DropoffDate: "2026-09-22",
		RentalDays:  7,
		URL:         "https://www.rentalcars.com/search-results?x=1",
		ObservedAt:  time.Now().UTC(),
	}

	rec := BuildRecord(obs)
	if rec.NumOffers != 3 {
		t.Errorf("NumOffers = %d; want 3", rec.NumOffers)
	}
	if rec.MinTotalPrice == nil || *rec.MinTotalPrice != 350 {
		t.Fatalf("MinTotalPrice = %v; want 350", rec.MinTotalPrice)
	}
	if rec.MinPricePerDay == nil || *rec.MinPricePerDay != 50 {
		t.Errorf("MinPricePerDay = %v; want 50", rec.MinPricePerDay)
	}
}

func TestBuildRecordZeroOffers(t *testing.T) {
	obs := &models.PriceObservation{
		PickupDate:  "2026-09-15",
		DropoffDate: "2026-09-22",
		RentalDays:  7,
	}

	rec := BuildRecord(obs)
	if rec.NumOffers != 0 {
		t.Errorf("NumOffers = %d; want 0", rec.NumOffers)
	}
	if rec.MinTotalPrice != nil || rec.MinPricePerDay != nil {
		t.Error("zero-offer run must carry absent price fields")
	}
	if rec.RunAt.IsZero() {
		t.Error("zero-offer run still needs a timestamp")
	}
}

func TestValidateRecord(t *testing.T) {
	valid := func() *models.RunRecord {
		return &models.RunRecord{
			RunAt:       time.Now().UTC(),
			PickupDate:  "2026-09-15",
			DropoffDate: "2026-09-22",
			RentalDays:  7,
			NumOffers:   5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.RunRecord)
		wantErr bool
	}{
		{"valid", func(r *models.RunRecord) {}, false},
		{"missing pickup", func(r *models.RunRecord) { r.PickupDate = "" }, true},
		{"bad dropoff format", func(r *models.RunRecord) { r.DropoffDate = "22/09/2026" }, true},
		{"zero rental days", func(r *models.RunRecord) { r.RentalDays = 0 }, true},
		{"negative offers", func(r *models.RunRecord) { r.NumOffers = -1 }, true},
		{"non-positive price", func(r *models.RunRecord) { r.MinTotalPrice = fp(0) }, true},
		{"per-day without total", func(r *models.RunRecord) { r.MinPricePerDay = fp(50) }, true},
	}

	for _, tt := range tests {
		rec := valid()
		tt.mutate(rec)
		err := ValidateRecord(rec)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateRecord err = %v; wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestIngestRejectsBeforePersisting(t *testing.T) {
	store := &memStore{}
	ing := NewIngestor(store, utils.NewLogger())

	err := ing.Ingest(&models.RunRecord{PickupDate: "not-a-date"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.records) != 0 {
		t.Error("invalid record must not reach the store")
	}
}

func TestIngestDerivesMissingPerDay(t *testing.T) {
	store := &memStore{}
	ing := NewIngestor(store, utils.NewLogger())

	rec := &models.RunRecord{
		PickupDate:    "2026-09-15",
		DropoffDate:   "2026-09-22",
		RentalDays:    7,
		NumOffers:     4,
		MinTotalPrice: fp(350),
	}
	if err := ing.Ingest(rec); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.MinPricePerDay == nil || *rec.MinPricePerDay != 50 {
		t.Errorf("MinPricePerDay = %v; want 50", rec.MinPricePerDay)
	}
}

func TestIngestPropagatesStoreFailure(t *testing.T) {
	ing := NewIngestor(&memStore{failing: true}, utils.NewLogger())

	err := ing.Ingest(&models.RunRecord{
		RunAt:       time.Now().UTC(),
		PickupDate:  "2026-09-15",
		DropoffDate: "2026-09-22",
		RentalDays:  7,
	})
	if err == nil {
		t.Fatal("store failure must propagate, not be swallowed")
	}
}
