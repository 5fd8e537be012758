package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"rentalcars-watcher/models"
)

// CSVWriter dumps the raw extraction output to a CSV file, one row per
// distinct price, before any record-building. Audit trail for when the
// selectors start drifting. Safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"observed_at", "pickup_date", "dropoff_date", "rental_days", "price", "url",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteObservation writes every extracted price of one pass.
func (c *CSVWriter) WriteObservation(obs *models.PriceObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, price := range obs.Prices {
		row := []string{
			obs.ObservedAt.UTC().Format(time.RFC3339),
			obs.PickupDate,
			obs.DropoffDate,
			strconv.Itoa(obs.RentalDays),
			strconv.FormatFloat(price, 'f', 2, 64),
			obs.URL,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
