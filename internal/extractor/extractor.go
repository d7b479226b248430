// Package extractor fetches rendered web pages and reduces them to plain
// text for the document store.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/store"
	"docuchat-backend/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// contentTags is the fixed ordered allow-list of semantic tags that are
// harvested from a rendered page. Harvest order follows this list, not DOM
// position: text from unrelated sections may interleave. That matches the
// historical extraction behavior and downstream retrieval does not depend
// on section order.
var contentTags = []string{
	"p", "span", "a", "h1", "h2", "h3", "h4", "h5", "h6",
	"li", "article", "section", "blockquote", "figcaption",
	"td", "caption", "nav", "label", "summary", "aside",
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Extractor renders pages in a headless browser and harvests their text.
// Each call gets an isolated browser context, released unconditionally when
// the call returns. When the browser cannot be launched at all, a static
// HTTP fetch is used so extraction still works in browserless environments.
type Extractor struct {
	renderTimeout    time.Duration
	networkIdleAfter time.Duration
}

func NewExtractor(renderTimeout, networkIdleAfter time.Duration) *Extractor {
	if renderTimeout <= 0 {
		renderTimeout = 45 * time.Second
	}
	if networkIdleAfter <= 0 {
		networkIdleAfter = 1200 * time.Millisecond
	}
	return &Extractor{renderTimeout: renderTimeout, networkIdleAfter: networkIdleAfter}
}

// Extract fetches the page at rawURL and returns its harvested text.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: not an absolute URL: %q", models.ErrInvalidArgument, rawURL)
	}

	html, err := e.renderHTML(ctx, rawURL)
	if err != nil {
		if isLaunchFailure(err) {
			logger.Warn("Headless browser unavailable, falling back to static fetch", "url", rawURL, "error", err)
			html, err = e.fetchStaticHTML(ctx, rawURL)
		}
		if err != nil {
			return "", classifyFetchError(rawURL, err)
		}
	}

	text, err := HarvestText(html)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", models.ErrFetch, rawURL, err)
	}
	return text, nil
}

// ExtractToStore extracts a page and persists the text under a filename
// derived from the URL host. Re-extracting a host overwrites the previous
// content; there is no versioning.
func (e *Extractor) ExtractToStore(ctx context.Context, s store.DocumentStore, rawURL string) (string, error) {
	text, err := e.Extract(ctx, rawURL)
	if err != nil {
		return "", err
	}

	name := StoreName(rawURL)
	if err := s.Write(ctx, name, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to persist extraction for %s: %w", rawURL, err)
	}

	logger.Info("Saved extraction", "url", rawURL, "file", name, "chars", len(text))
	return name, nil
}

// StoreName maps a URL to its document store filename, one file per host.
func StoreName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "scrape.txt"
	}
	return parsed.Hostname() + ".txt"
}

// renderHTML launches an isolated browser context, waits for readiness and
// network idle, then returns the page HTML.
func (e *Extractor) renderHTML(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.renderTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html string

	if err := chromedp.Run(browserCtx, chromedp.Navigate(rawURL)); err != nil {
		return "", err
	}

	// Ready check and network idle are soft-fail: a page that never goes
	// idle still gets read after the wait caps out.
	{
		stepCtx, cancelStep := context.WithTimeout(browserCtx, 10*time.Second)
		defer cancelStep()
		_ = chromedp.Run(stepCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	idleCap := e.networkIdleAfter
	if idleCap > 5*time.Second {
		idleCap = 5 * time.Second
	}
	{
		stepCtx, cancelStep := context.WithTimeout(browserCtx, idleCap+1*time.Second)
		defer cancelStep()
		_ = chromedp.Run(stepCtx, waitForNetworkIdle(idleCap))
	}

	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// waitForNetworkIdle waits until no network requests are in flight for the
// given duration.
func waitForNetworkIdle(d time.Duration) chromedp.ActionFunc {
	js := `(function(waitMs){
      return new Promise((resolve)=>{
        if (!('PerformanceObserver' in window)) {
          setTimeout(resolve, waitMs);
          return;
        }
        let last = Date.now();
        const obs = new PerformanceObserver(()=>{ last = Date.now(); });
        try { obs.observe({entryTypes:['resource','navigation']}); } catch(e) {}
        const tick = () => {
          if (Date.now()-last >= waitMs) { try { obs.disconnect(); } catch(e){} resolve(); return; }
          setTimeout(tick, 100);
        };
        tick();
      });
    })(%d);`
	return func(ctx context.Context) error {
		expr := fmt.Sprintf(js, int(d.Milliseconds()))
		return chromedp.Run(ctx, chromedp.Evaluate(expr, nil,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}))
	}
}

// HarvestText collects the trimmed inner text of every element matching the
// tag allow-list, in tag order, dropping empties and joining with newlines.
func HarvestText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var texts []string
	for _, tag := range contentTags {
		doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				texts = append(texts, text)
			}
		})
	}
	return strings.Join(texts, "\n"), nil
}

// isLaunchFailure reports whether the browser itself failed to start, as
// opposed to the page failing to load.
func isLaunchFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") ||
		strings.Contains(msg, "exec:") ||
		strings.Contains(msg, "chrome failed to start")
}

// classifyFetchError separates connectivity failures from page-load
// failures so callers can report them distinctly.
func classifyFetchError(rawURL string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "ERR_NAME_NOT_RESOLVED") ||
		strings.Contains(msg, "ERR_CONNECTION") {
		return fmt.Errorf("%w: %s: %v", models.ErrNetwork, rawURL, err)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrFetch, rawURL, err)
}
