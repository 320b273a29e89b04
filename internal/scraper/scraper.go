package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"mspro-labs/flat-watch/internal/aggregate"
	"mspro-labs/flat-watch/internal/config"
	"mspro-labs/flat-watch/internal/fetcher"
	"mspro-labs/flat-watch/internal/models"
)

var logger = log.New(os.Stdout, "SCRAPER: ", log.LstdFlags|log.Lshortfile)

// Query records one block/flat type search and how many units it returned.
type Query struct {
	Block    string
	FlatType string
	URL      string
	Units    int
}

// Result is the merged, canonically sorted output of a run.
type Result struct {
	Units   []models.Unit
	Queries []Query
}

// RunOptions lets tests replace the politeness delay.
type RunOptions struct {
	// Delay returns the pause before the next request. Defaults to a uniform
	// draw from [0, max_delay).
	Delay func() time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run fetches every block/flat type pair of the config one after another,
// parses the pages and merges the units. Any fetch or parse failure stops the
// run.
func Run(ctx context.Context, f fetcher.Fetcher, cfg *config.SiteConfig, opts RunOptions) (*Result, error) {
	if opts.Delay == nil {
		opts.Delay = uniformDelay(cfg.MaxDelay)
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	if cfg.WarmupURL != "" {
		logger.Println("Warming up session...")
		if err := f.WarmUp(ctx, cfg.WarmupURL); err != nil {
			return nil, fmt.Errorf("warm-up request failed: %w", err)
		}
	}

	res := &Result{}
	first := true
	for _, block := range cfg.Blocks {
		for _, flatType := range block.FlatTypes {
			if !first {
				if err := opts.Sleep(ctx, opts.Delay()); err != nil {
					return nil, err
				}
			}
			first = false

			units, q, err := fetchOne(ctx, f, cfg, block, flatType)
			if err != nil {
				return nil, err
			}
			res.Queries = append(res.Queries, q)
			res.Units = append(res.Units, units...)
		}
	}

	aggregate.SortUnits(res.Units)
	return res, nil
}

func fetchOne(ctx context.Context, f fetcher.Fetcher, cfg *config.SiteConfig, block config.Block, flatType string) ([]models.Unit, Query, error) {
	q := Query{Block: block.Name, FlatType: flatType}

	rawURL, err := cfg.BuildSearchURL(block, flatType)
	if err != nil {
		return nil, q, fmt.Errorf("failed to build search URL for %s %s: %w", block.Name, flatType, err)
	}
	q.URL = rawURL

	logger.Printf("Fetching %s %s", block.Name, flatType)
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, q, fmt.Errorf("failed to fetch %s %s: %w", block.Name, flatType, err)
	}

	units, err := ParsePage(body)
	if err != nil {
		var pageErr *PageStructureError
		var unitErr *MalformedUnitError
		switch {
		case errors.As(err, &pageErr):
			pageErr.Block, pageErr.FlatType = block.Name, flatType
		case errors.As(err, &unitErr):
			unitErr.Block, unitErr.FlatType = block.Name, flatType
		}
		return nil, q, err
	}
	logger.Printf("\tFound %d units", len(units))

	for i := range units {
		units[i].Block = block.Name
		units[i].FlatType = flatType
	}
	q.Units = len(units)
	return units, q, nil
}

func uniformDelay(limit time.Duration) func() time.Duration {
	return func() time.Duration {
		if limit <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(limit)))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
