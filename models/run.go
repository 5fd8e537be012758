package models

import "time"

// PriceObservation holds the outcome of one extraction pass before it is
// turned into a persisted RunRecord. Prices are distinct, ascending.
type PriceObservation struct {
	Prices      []float64
	PickupDate  string
	DropoffDate string
	RentalDays  int
	URL         string
	ObservedAt  time.Time
}

// MinPrice returns the cheapest extracted price, or false if the pass
// found nothing.
func (o *PriceObservation) MinPrice() (float64, bool) {
	if len(o.Prices) == 0 {
		return 0, false
	}
	return o.Prices[0], true
}

// RunRecord is one sampled observation for a fixed date range, immutable
// once written. The JSON field names are the stable on-the-wire schema;
// consumers of historical data parse these exact keys.
type RunRecord struct {
	ID             int64     `json:"-"`
	RunAt          time.Time `json:"run_at"`
	PickupDate     string    `json:"pickup_date"`
	DropoffDate    string    `json:"dropoff_date"`
	RentalDays     int       `json:"rental_days"`
	MinTotalPrice  *float64  `json:"min_total_price"`
	MinPricePerDay *float64  `json:"min_price_per_day"`
	NumOffers      int       `json:"num_offers"`
	URL            string    `json:"url"`
}

// StatsReport holds the aggregates computed over a run history slice.
// Count covers every record passed in; the per-day aggregates cover only
// the runs that produced a usable price, so the populations can differ.
type StatsReport struct {
	Count        int
	AvgPerDay    *float64
	MedianPerDay *float64
	P25PerDay    *float64
}
