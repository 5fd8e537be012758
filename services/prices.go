package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rentalcars-watcher/utils"
)

// Document is the rendered-page handle the extractor consumes. The scraper
// owns browser lifecycle and navigation; the extractor only queries.
type Document interface {
	// Find returns the visible text of every element matching the CSS
	// selector. An error means the probe itself misbehaved, not that
	// nothing matched.
	Find(selector string) ([]string, error)
	// Text returns the full visible text of the page.
	Text() string
}

// maxPlausiblePrice rejects obviously-wrong matches such as concatenated
// digit noise picked up by a loose selector.
const maxPlausiblePrice = 100000

var (
	// nonPriceChars strips everything that cannot be part of a number
	nonPriceChars = regexp.MustCompile(`[^0-9.,]`)
	// numberRun captures the first contiguous run of digits/periods
	numberRun = regexp.MustCompile(`[0-9.]+`)
	// currencyAnchored matches a number with a currency symbol before or after
	currencyAnchored = regexp.MustCompile(`[€£$]\s*([0-9.,]+)|([0-9.,]+)\s*[€£$]`)
)

// priceSelectors is the prioritized probe list. Rentalcars.com markup is not
// stable, so these are heuristics; the full-text scan is the safety net.
var priceSelectors = []string{
	`[data-testid*="price"]`,
	`[data-testid*="total"]`,
	`.price`,
	`.totalPrice`,
	`[class*="Price"]`,
	`[class*="price"]`,
	`span[class*="amount"]`,
}

// ParsePrice extracts a numeric price from text like "€ 45.00" or "123,45 €".
// Returns false for anything that does not parse to a positive number below
// the plausibility bound. A single comma is treated as a decimal point; this
// one substitution is the only separator heuristic applied.
func ParsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	normalized := nonPriceChars.ReplaceAllString(text, "")
	normalized = strings.ReplaceAll(normalized, ",", ".")

	match := numberRun.FindString(normalized)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if v <= 0 || v >= maxPlausiblePrice {
		return 0, false
	}
	return v, true
}

// Extractor scans a rendered document for advertised prices.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractPrices runs the strategy chain against the document and returns the
// distinct prices found, ascending. Strategies run in order until one yields
// results; a broken probe never aborts the pass, so the result may be empty
// but extraction itself never fails.
func (e *Extractor) ExtractPrices(doc Document) []float64 {
	seen := make(map[float64]struct{})
	var prices []float64
	add := func(v float64) {
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		prices = append(prices, v)
	}

	strategies := []struct {
		name string
		run  func(Document, func(float64))
	}{
		{"selector-probe", e.probeSelectors},
		{"text-scan", e.scanBodyText},
	}

	for _, strategy := range strategies {
		strategy.run(doc, add)
		if len(prices) > 0 {
			e.logger.Debug("[extract] %s yielded %d prices", strategy.name, len(prices))
			break
		}
	}

	sort.Float64s(prices)
	return prices
}

// probeSelectors tries each structural selector in priority order, collecting
// every parseable price across all of them. Individual probe failures are
// swallowed so one stale selector cannot sink the rest.
func (e *Extractor) probeSelectors(doc Document, add func(float64)) {
	for _, sel := range priceSelectors {
		texts, err := doc.Find(sel)
		if err != nil {
			e.logger.Debug("[extract] selector %q: %v", sel, err)
			continue
		}
		for _, text := range texts {
			if v, ok := ParsePrice(text); ok {
				add(v)
			}
		}
	}
}

// scanBodyText is the fallback when no structural probe matched: scan the
// full visible text for currency-anchored numbers.
func (e *Extractor) scanBodyText(doc Document, add func(float64)) {
	for _, m := range currencyAnchored.FindAllStringSubmatch(doc.Text(), -1) {
		token := m[1]
		if token == "" {
			token = m[2]
		}
		if v, ok := ParsePrice(token); ok {
			add(v)
		}
	}
}
