package services

import (
	"math"
	"testing"
	"time"

	"rentalcars-watcher/models"
	"rentalcars-watcher/utils"
)

func fp(v float64) *float64 { return &v }

// perDayRecords builds a history where each run carries the given per-day
// price.
func perDayRecords(perDay ...float64) []*models.RunRecord {
	records := make([]*models.RunRecord, 0, len(perDay))
	for _, v := range perDay {
		total := v * 7
		records = append(records, &models.RunRecord{
			RunAt:          time.Now().UTC(),
			PickupDate:     "2026-09-15",
			DropoffDate:    "2026-09-22",
			RentalDays:     7,
			MinTotalPrice:  &total,
			MinPricePerDay: fp(v),
			NumOffers:      12,
		})
	}
	return records
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		want   float64
		wantOK bool
	}{
		{"odd", []float64{3, 1, 2}, 2, true},
		{"even", []float64{1, 2, 3, 4}, 2.5, true},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := Median(tt.xs)
		if ok != tt.wantOK || (ok && !almostEqual(got, tt.want)) {
			t.Errorf("%s: Median(%v) = %v, %v; want %v, %v", tt.name, tt.xs, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAverage(t *testing.T) {
	if got, ok := Average([]float64{30, 40, 50, 60, 70}); !ok || !almostEqual(got, 50) {
		t.Errorf("Average = %v, %v; want 50, true", got, ok)
	}
	if _, ok := Average(nil); ok {
		t.Error("Average(nil) should be absent")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		p      float64
		want   float64
		wantOK bool
	}{
		{"interpolated", []float64{10, 20, 30, 40}, 0.25, 17.5, true},
		{"exact rank", []float64{10, 20, 30, 40, 50}, 0.25, 20, true},
		{"p0 is min", []float64{10, 20, 30}, 0, 10, true},
		{"p1 is max", []float64{10, 20, 30}, 1, 30, true},
		{"empty", nil, 0.5, 0, false},
		{"p out of range", []float64{10, 20}, 1.5, 0, false},
		{"negative p", []float64{10, 20}, -0.1, 0, false},
	}

	for _, tt := range tests {
		got, ok := Percentile(tt.xs, tt.p)
		if ok != tt.wantOK || (ok && !almostEqual(got, tt.want)) {
			t.Errorf("%s: Percentile(%v, %v) = %v, %v; want %v, %v",
				tt.name, tt.xs, tt.p, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPerDayHistoryFiltersUnusableRuns(t *testing.T) {
	records := perDayRecords(40, 50)
	// zero-offer run: valid record, no price signal
	records = append(records, &models.RunRecord{
		RunAt:       time.Now().UTC(),
		PickupDate:  "2026-09-15",
		DropoffDate: "2026-09-22",
		RentalDays:  7,
		NumOffers:   0,
	})

	series := PerDayHistory(records)
	if len(series) != 2 {
		t.Errorf("PerDayHistory len = %d; want 2", len(series))
	}
}

func TestComputeCountsAllRecords(t *testing.T) {
	svc := NewStatsService(utils.NewLogger())

	records := perDayRecords(30, 40, 50, 60, 70)
	records = append(records, &models.RunRecord{
		PickupDate: "2026-09-15", DropoffDate: "2026-09-22", RentalDays: 7,
	})

	report := svc.Compute(records)
	if report.Count != 6 {
		t.Errorf("Count = %d; want 6 (unfiltered)", report.Count)
	}
	if report.AvgPerDay == nil || !almostEqual(*report.AvgPerDay, 50) {
		t.Errorf("AvgPerDay = %v; want 50", report.AvgPerDay)
	}
	if report.MedianPerDay == nil || !almostEqual(*report.MedianPerDay, 50) {
		t.Errorf("MedianPerDay = %v; want 50", report.MedianPerDay)
	}
	if report.P25PerDay == nil || !almostEqual(*report.P25PerDay, 40) {
		t.Errorf("P25PerDay = %v; want 40", report.P25PerDay)
	}
}

func TestComputeEmptyHistory(t *testing.T) {
	svc := NewStatsService(utils.NewLogger())
	report := svc.Compute(nil)
	if report.Count != 0 || report.AvgPerDay != nil || report.MedianPerDay != nil || report.P25PerDay != nil {
		t.Errorf("empty history should yield zero count and absent aggregates, got %+v", report)
	}
}

func TestIsCheapThinHistoryDefaultsCheap(t *testing.T) {
	svc := NewStatsService(utils.NewLogger())

	cheap, threshold := svc.IsCheap(9999, perDayRecords(10, 20), 0.25)
	if !cheap {
		t.Error("fewer than 3 usable prices must classify as cheap")
	}
	if threshold != nil {
		t.Errorf("threshold should be absent with thin history, got %v", *threshold)
	}
}

func TestIsCheapAgainstHistory(t *testing.T) {
	svc := NewStatsService(utils.NewLogger())
	records := perDayRecords(10, 20, 30, 40, 50)

	cheap, threshold := svc.IsCheap(15, records, 0.25)
	if threshold == nil || !almostEqual(*threshold, 20) {
		t.Fatalf("threshold = %v; want 20", threshold)
	}
	if !cheap {
		t.Error("15 ≤ 20 should be cheap")
	}

	cheap, _ = svc.IsCheap(25, records, 0.25)
	if cheap {
		t.Error("25 > 20 should not be cheap")
	}
}
