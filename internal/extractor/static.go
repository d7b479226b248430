package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

var staticTransport = &http.Transport{
	DisableCompression: false,
}

// fetchStaticHTML retrieves the page without JavaScript execution. Used when
// no headless browser is available; dynamic content will be missing but
// server-rendered pages extract fine.
func (e *Extractor) fetchStaticHTML(ctx context.Context, rawURL string) (string, error) {
	c := colly.NewCollector()
	c.WithTransport(staticTransport)
	c.UserAgent = userAgent

	timeout := e.renderTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	c.SetRequestTimeout(timeout)

	var (
		html     string
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
			fetchErr = fmt.Errorf("unexpected content type %q", contentType)
			return
		}

		var bodyReader io.Reader = bytes.NewReader(r.Body)

		// The standard transport decompresses gzip but not brotli.
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			decompressed, err := io.ReadAll(brotli.NewReader(bodyReader))
			if err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}

		if len(r.Body) > 0 {
			if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
				if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
					r.Body = decoded
				}
			}
		}

		html = string(r.Body)
	})

	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if html == "" {
		return "", fmt.Errorf("empty response from %s", rawURL)
	}
	return html, nil
}
