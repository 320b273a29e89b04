package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Browser drives a single stealth tab of a headless Chromium. Cookies live in
// the browser profile for as long as it runs.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

func NewBrowser(opts Options) (*Browser, error) {
	logger.Println("Launching headless browser...")
	l := launcher.New().Headless(true).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := connectOrKill(browser.Connect, l.Kill); err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Browser{browser: browser, page: page, timeout: timeout}, nil
}

// connectOrKill stops the launched Chromium when the connection fails, so no
// orphan process is left behind.
func connectOrKill(connect func() error, kill func()) error {
	if err := connect(); err != nil {
		kill()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	return nil
}

func (b *Browser) WarmUp(ctx context.Context, rawURL string) error {
	_, err := b.Fetch(ctx, rawURL)
	return err
}

func (b *Browser) Fetch(ctx context.Context, rawURL string) (string, error) {
	page := b.page.Context(ctx).Timeout(b.timeout)
	defer page.CancelTimeout()

	logger.Println("Navigating to", rawURL)
	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed waiting for %s: %w", rawURL, err)
	}
	return page.HTML()
}

func (b *Browser) Close() error {
	return b.browser.Close()
}
