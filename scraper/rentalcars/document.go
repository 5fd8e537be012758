package rentalcars

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// PageDocument wraps the parsed HTML of a rendered results page together
// with its visible body text. It satisfies services.Document.
type PageDocument struct {
	doc  *goquery.Document
	body string
}

// NewPageDocument parses the rendered HTML. bodyText may be empty; the
// parsed document's text is used as a fallback.
func NewPageDocument(html, bodyText string) (*PageDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rentalcars: parse page: %w", err)
	}
	return &PageDocument{doc: doc, body: bodyText}, nil
}

// Find returns the visible text of every element matching the selector. The
// selector is compiled explicitly: goquery's own Find treats a broken
// selector as "no match", which would hide a broken probe from the caller.
func (p *PageDocument) Find(selector string) ([]string, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("rentalcars: selector %q: %w", selector, err)
	}

	var texts []string
	p.doc.FindMatcher(matcher).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts, nil
}

// Text returns the full visible text of the page.
func (p *PageDocument) Text() string {
	if p.body != "" {
		return p.body
	}
	return p.doc.Find("body").Text()
}
