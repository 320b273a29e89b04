// Package fetcher owns the session with the sales portal. Implementations keep
// cookies between calls so the warm-up request authorises later searches.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "FETCHER: ", log.LstdFlags|log.Lshortfile)

const (
	KindHTTP    = "http"
	KindBrowser = "browser"
)

// Fetcher returns the raw body of a GET request.
type Fetcher interface {
	WarmUp(ctx context.Context, rawURL string) error
	Fetch(ctx context.Context, rawURL string) (string, error)
	Close() error
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
}

// New picks the implementation named in the site config.
func New(kind string, opts Options) (Fetcher, error) {
	switch kind {
	case "", KindHTTP:
		return NewHTTP(opts)
	case KindBrowser:
		return NewBrowser(opts)
	default:
		return nil, fmt.Errorf("unknown fetcher %q (want %q or %q)", kind, KindHTTP, KindBrowser)
	}
}
