package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"rentalcars-watcher/models"
	"rentalcars-watcher/utils"
)

// StatsService computes descriptive statistics over a run history and
// classifies new observations against it. Stateless; all history lives in
// the store.
type StatsService struct {
	logger *utils.Logger
}

func NewStatsService(logger *utils.Logger) *StatsService {
	return &StatsService{logger: logger}
}

// Average returns the arithmetic mean, or false for an empty series.
func Average(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs)), true
}

// Median returns the middle element (odd count) or the mean of the two
// middle elements (even count), or false for an empty series.
func Median(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	s := sortedCopy(xs)
	n := len(s)
	if n%2 == 1 {
		return s[n/2], true
	}
	return (s[n/2-1] + s[n/2]) / 2, true
}

// Percentile computes the linearly-interpolated p-th percentile for
// p in [0, 1] (0.25 = 25th percentile). False if the series is empty or p
// is out of range.
func Percentile(xs []float64, p float64) (float64, bool) {
	if len(xs) == 0 || p < 0 || p > 1 {
		return 0, false
	}
	s := sortedCopy(xs)
	k := float64(len(s)-1) * p
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return s[int(k)], true
	}
	return s[int(f)]*(c-k) + s[int(c)]*(k-f), true
}

// PerDayHistory extracts the usable per-day price series from a run history:
// only runs with a present, strictly-positive minimum price per day count.
func PerDayHistory(records []*models.RunRecord) []float64 {
	var series []float64
	for _, r := range records {
		if r.MinPricePerDay != nil && *r.MinPricePerDay > 0 {
			series = append(series, *r.MinPricePerDay)
		}
	}
	return series
}

// Compute aggregates a run history slice. Count reflects every record passed
// in; the price aggregates use only the positive-price subset.
func (s *StatsService) Compute(records []*models.RunRecord) *models.StatsReport {
	report := &models.StatsReport{Count: len(records)}

	series := PerDayHistory(records)
	if avg, ok := Average(series); ok {
		report.AvgPerDay = &avg
	}
	if med, ok := Median(series); ok {
		report.MedianPerDay = &med
	}
	if p25, ok := Percentile(series, 0.25); ok {
		report.P25PerDay = &p25
	}
	return report
}

// IsCheap classifies a per-day price against history. With fewer than 3
// usable historical prices there is nothing to compare against, so the
// answer is an optimistic cheap=true with no threshold — deliberate policy,
// keeps the signal flowing while history builds up.
func (s *StatsService) IsCheap(currentPerDay float64, records []*models.RunRecord, cheapPercentile float64) (bool, *float64) {
	series := PerDayHistory(records)
	if len(series) < 3 {
		return true, nil
	}
	threshold, ok := Percentile(series, cheapPercentile)
	if !ok {
		return false, nil
	}
	return currentPerDay <= threshold, &threshold
}

// Print renders the stats report and recent runs to the console.
func (s *StatsService) Print(report *models.StatsReport, records []*models.RunRecord, pickupDate, dropoffDate string) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 RENTALCARS PRICE HISTORY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Date range\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Pickup  : \033[1m%s\033[0m\n", pickupDate)
	fmt.Printf("  Dropoff : \033[1m%s\033[0m\n", dropoffDate)
	fmt.Printf("  Runs recorded : \033[1m%d\033[0m\n", report.Count)
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (per day)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if report.AvgPerDay != nil {
		fmt.Printf("  Average price  : \033[1;32m€%.2f\033[0m\n", *report.AvgPerDay)
		fmt.Printf("  Median price   : \033[1;32m€%.2f\033[0m\n", *report.MedianPerDay)
		fmt.Printf("  25th pct (cheap threshold) : \033[1;32m€%.2f\033[0m\n", *report.P25PerDay)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Last runs\033[0m\n")
	fmt.Printf("  %s\n", thin)
	start := len(records) - 5
	if start < 0 {
		start = 0
	}
	if len(records) == 0 {
		fmt.Printf("  No runs yet\n")
	}
	for _, r := range records[start:] {
		if r.MinPricePerDay != nil && r.MinTotalPrice != nil {
			fmt.Printf("  %s  €%.2f/day (total €%.2f, %d offers)\n",
				r.RunAt.Format("2006-01-02 15:04"), *r.MinPricePerDay, *r.MinTotalPrice, r.NumOffers)
		} else {
			fmt.Printf("  %s  no prices found\n", r.RunAt.Format("2006-01-02 15:04"))
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func sortedCopy(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}
