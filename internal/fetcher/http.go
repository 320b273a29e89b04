package fetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTP is a plain HTTP session backed by a colly collector. Every request is
// made from a clone of the same collector, so they share one cookie jar.
type HTTP struct {
	c *colly.Collector
}

func NewHTTP(opts Options) (*HTTP, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
	)
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	// One request in flight at a time; pacing is left to the caller.
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}

	return &HTTP{c: c}, nil
}

func (h *HTTP) WarmUp(ctx context.Context, rawURL string) error {
	_, err := h.Fetch(ctx, rawURL)
	return err
}

func (h *HTTP) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var body []byte
	c := h.c.Clone()
	c.OnRequest(func(r *colly.Request) {
		logger.Println("Visiting", r.URL)
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(rawURL); err != nil {
		return "", fmt.Errorf("error visiting %s: %w", rawURL, err)
	}
	c.Wait()

	if body == nil {
		return "", fmt.Errorf("no response body from %s", rawURL)
	}
	return string(body), nil
}

func (h *HTTP) Close() error {
	return nil
}
