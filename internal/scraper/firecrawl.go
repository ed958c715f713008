package scraper

import (
	"context"
	"time"

	"github.com/mendableai/firecrawl-go"

	"istanbul-explorer/pkg/circuit"
	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/logging"
	"istanbul-explorer/pkg/utils"
)

// allowedDomains is the fixed set of sources enrichment may spend scrape
// credits on. URLs outside the list are skipped before any request is made.
var allowedDomains = map[string]bool{
	"istanbul.com":             true,
	"istanbeautiful.com":       true,
	"istanbultourstudio.com":   true,
	"howtoistanbul.com":        true,
	"muze.gen.tr":              true,
	"millisaraylar.gov.tr":     true,
	"goturkiye.com":            true,
	"istanbul.goturkiye.com":   true,
	"theistanbulinsider.com":   true,
	"istanbulclues.com":        true,
	"wikipedia.org":            true,
	"en.wikipedia.org":         true,
	"tripadvisor.com":          true,
	"www.tripadvisor.com":      true,
	"lonelyplanet.com":         true,
	"www.lonelyplanet.com":     true,
	"timeout.com":              true,
	"www.timeout.com":          true,
	"culture.istanbul":         true,
	"ayasofyacamii.gov.tr":     true,
	"topkapisarayi.gov.tr":     true,
	"istanbulmodern.org":       true,
	"galataport.com":           true,
	"viator.com":               true,
	"www.viator.com":           true,
	"getyourguide.com":         true,
	"www.getyourguide.com":     true,
}

// ScrapeResult carries the scraped page content plus cost accounting.
type ScrapeResult struct {
	Markdown    string
	Title       string
	SourceURL   string
	CreditsUsed int
}

// ContentScraper fetches a page as markdown for field extraction.
type ContentScraper interface {
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
	// AllowedURL reports whether url may be scraped. When it may not,
	// skipReason explains why without spending credits.
	AllowedURL(url string) (ok bool, skipReason string)
}

// FirecrawlScraper wraps the Firecrawl API behind the allowlist and a
// circuit breaker.
type FirecrawlScraper struct {
	app     *firecrawl.FirecrawlApp
	breaker *circuit.Breaker
	timeout time.Duration
	log     *logging.Logger
}

func NewFirecrawlScraper(apiKey string, timeout time.Duration, log *logging.Logger) (*FirecrawlScraper, error) {
	if apiKey == "" {
		return nil, errs.NewValidation("scraper.NewFirecrawlScraper", "firecrawl api key is required", nil)
	}
	app, err := firecrawl.NewFirecrawlApp(apiKey, "https://api.firecrawl.dev")
	if err != nil {
		return nil, errs.NewExternal("scraper.NewFirecrawlScraper", "firecrawl", "client init failed", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FirecrawlScraper{
		app:     app,
		breaker: circuit.New("firecrawl", 3, 30*time.Second),
		timeout: timeout,
		log:     log.WithComponent("firecrawl"),
	}, nil
}

func (s *FirecrawlScraper) AllowedURL(url string) (bool, string) {
	domain := utils.ExtractDomain(url)
	if domain == "" {
		return false, "item has no usable website URL"
	}
	if !allowedDomains[domain] {
		return false, "domain " + domain + " is not on the enrichment allowlist"
	}
	return true, ""
}

// Scrape fetches the page as markdown. The firecrawl client has no context
// support, so the call runs in a goroutine and the result is abandoned when
// ctx expires first.
func (s *FirecrawlScraper) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	if ok, reason := s.AllowedURL(url); !ok {
		return nil, errs.NewValidation("firecrawl.Scrape", reason, nil)
	}

	type outcome struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	ch := make(chan outcome, 1)

	started := time.Now()
	go func() {
		var doc *firecrawl.FirecrawlDocument
		err := s.breaker.Execute(func() error {
			var serr error
			doc, serr = s.app.ScrapeURL(url, &firecrawl.ScrapeParams{
				Formats: []string{"markdown"},
			})
			return serr
		})
		ch <- outcome{doc: doc, err: err}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, errs.NewExternal("firecrawl.Scrape", "firecrawl", "scrape timed out", ctx.Err())
	case out := <-ch:
		if out.err != nil {
			return nil, errs.NewExternal("firecrawl.Scrape", "firecrawl", "scrape failed", out.err)
		}
		if out.doc == nil || out.doc.Markdown == "" {
			return nil, errs.NewExternal("firecrawl.Scrape", "firecrawl", "page returned no content", nil)
		}

		res := &ScrapeResult{
			Markdown:    out.doc.Markdown,
			SourceURL:   url,
			CreditsUsed: 1,
		}
		if out.doc.Metadata != nil && out.doc.Metadata.Title != nil {
			res.Title = *out.doc.Metadata.Title
		}
		s.log.Info("scraped page",
			"url", url,
			"chars", len(res.Markdown),
			"took_ms", time.Since(started).Milliseconds())
		return res, nil
	}
}
