package rentalcars

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"rentalcars-watcher/config"
	"rentalcars-watcher/models"
	"rentalcars-watcher/services"
	"rentalcars-watcher/utils"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper renders the configured rentalcars.com search and hands the result
// to the price extractor.
type Scraper struct {
	cfg       *config.Config
	logger    *utils.Logger
	extractor *services.Extractor
	retry     *utils.RetryConfig
	headless  bool
}

// New creates a ready-to-use rentalcars Scraper.
func New(cfg *config.Config, logger *utils.Logger, headless bool) *Scraper {
	return &Scraper{
		cfg:       cfg,
		logger:    logger,
		extractor: services.NewExtractor(logger),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		headless: headless,
	}
}

// Fetch opens the search URL, waits for the results to render, and extracts
// prices. A page where every strategy comes up empty is not an error: the
// observation simply carries zero prices.
func (s *Scraper) Fetch() (*models.PriceObservation, error) {
	searchURL := s.cfg.SearchURL()
	obs := &models.PriceObservation{
		PickupDate:  s.cfg.PickupDate,
		DropoffDate: s.cfg.DropoffDate,
		RentalDays:  s.cfg.RentalDays(),
		URL:         searchURL,
		ObservedAt:  time.Now().UTC(),
	}

	s.logger.Info("[rentalcars] Fetching %s → %s (%d days)",
		obs.PickupDate, obs.DropoffDate, obs.RentalDays)

	html, bodyText, err := s.renderPage(searchURL, s.cfg.RenderWaitMs)
	if err != nil {
		return obs, fmt.Errorf("rentalcars: render: %w", err)
	}

	doc, err := NewPageDocument(html, bodyText)
	if err != nil {
		return obs, err
	}

	obs.Prices = s.extractor.ExtractPrices(doc)
	if len(obs.Prices) == 0 {
		s.logger.Warn("[rentalcars] No prices found on page — check selectors or run with --dump-html")
	} else {
		s.logger.Info("[rentalcars] Extracted %d distinct prices (min €%.2f)",
			len(obs.Prices), obs.Prices[0])
	}
	return obs, nil
}

// DumpHTML fetches the page and saves the rendered HTML for debugging
// selectors. Returns the output path.
func (s *Scraper) DumpHTML(path string) (string, error) {
	if path == "" {
		path = "rentalcars_search_results.html"
	}

	html, _, err := s.renderPage(s.cfg.SearchURL(), 3000)
	if err != nil {
		return "", fmt.Errorf("rentalcars: render for dump: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("rentalcars: write %q: %w", path, err)
	}

	s.logger.Info("[rentalcars] Saved HTML to %s", path)
	return path, nil
}

// renderPage runs one chromedp pass: navigate, give the site's JS time to
// render results (it can be slow), then capture the DOM and visible text.
func (s *Scraper) renderPage(pageURL string, waitMs int) (html, bodyText string, err error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Debug("[rentalcars] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1280, 800),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	err = s.retry.Do("render-search-page", func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(s.cfg.RenderTimeoutMs)*time.Millisecond)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(time.Duration(waitMs)*time.Millisecond),
			chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
			chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &bodyText),
		)
	})
	return html, bodyText, err
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
