package services

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"rentalcars-watcher/utils"
)

// fakeDocument lets tests script what each selector probe and the body text
// return.
type fakeDocument struct {
	selections map[string][]string
	failing    map[string]bool
	body       string
}

func (d *fakeDocument) Find(selector string) ([]string, error) {
	if d.failing[selector] {
		return nil, errors.New("stale element")
	}
	return d.selections[selector], nil
}

func (d *fakeDocument) Text() string { return d.body }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"€ 45.00", 45.0, true},
		{"123,45 €", 123.45, true},
		{"from 45.00 total", 45.0, true},
		{"£799", 799, true},
		{"99999.99", 99999.99, true},
		{"", 0, false},
		{"free cancellation", 0, false},
		{"0.00 €", 0, false},
		{"€150000", 0, false},
		{"$1,200.50", 0, false}, // mixed separators do not parse; absent, not a guess
	}

	for _, tt := range tests {
		got, ok := ParsePrice(tt.raw)
		if ok != tt.wantOK {
			t.Errorf("ParsePrice(%q) ok = %v; want %v", tt.raw, ok, tt.wantOK)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParsePrice(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestExtractPricesDeduplicates(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	doc := &fakeDocument{
		selections: map[string][]string{
			`.price`:           {"€20", "€10"},
			`[class*="price"]`: {"€10"},
		},
	}

	got := e.ExtractPrices(doc)
	want := []float64{10, 20}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPrices = %v; want %v", got, want)
	}
}

func TestExtractPricesTextFallback(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	doc := &fakeDocument{
		body: "€45.00 total, save with €38.50",
	}

	got := e.ExtractPrices(doc)
	want := []float64{38.5, 45.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPrices = %v; want %v", got, want)
	}
}

func TestExtractPricesSwallowsProbeFailures(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	doc := &fakeDocument{
		selections: map[string][]string{
			`.totalPrice`: {"€55"},
		},
		failing: map[string]bool{
			`[data-testid*="price"]`: true,
			`[data-testid*="total"]`: true,
			`.price`:                 true,
		},
	}

	got := e.ExtractPrices(doc)
	want := []float64{55}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPrices = %v; want %v", got, want)
	}
}

func TestExtractPricesEmptyDocument(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	got := e.ExtractPrices(&fakeDocument{})
	if len(got) != 0 {
		t.Errorf("expected no prices from empty document, got %v", got)
	}
}

func TestExtractPricesProbesShadowFallback(t *testing.T) {
	// When a structural probe succeeds the text scan must not run, even if
	// the body carries more prices.
	e := NewExtractor(utils.NewLogger())
	doc := &fakeDocument{
		selections: map[string][]string{
			`.price`: {"€30"},
		},
		body: "€99 somewhere in the footer",
	}

	got := e.ExtractPrices(doc)
	want := []float64{30}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPrices = %v; want %v", got, want)
	}
}
