package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/flat-watch/internal/aggregate"
	"mspro-labs/flat-watch/internal/db"
	"mspro-labs/flat-watch/internal/fetcher"
	"mspro-labs/flat-watch/internal/models"
	"mspro-labs/flat-watch/internal/report"
	"mspro-labs/flat-watch/internal/scraper"
)

var (
	scrapePaths *pathFlags
	scrapeNoDB  bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch the availability of every block and flat type once",
	Long: `Warms up a session with the sales portal, queries every configured block/flat type pair,
writes the JSON, CSV and health-check reports and records the run in the local database.`,
	Run: func(cmd *cobra.Command, args []string) {
		runScrape(cmd.Context())
	},
}

func init() {
	scrapePaths = addPathFlags(scrapeCmd)
	scrapeCmd.Flags().BoolVar(&scrapeNoDB, "no-db", false, "Do not record the run in the database")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(ctx context.Context) {
	// 1. Load Config
	appCfg, siteCfg := loadConfigs()

	// 2. Open the portal session
	f, err := fetcher.New(siteCfg.Fetcher, fetcher.Options{
		UserAgent: siteCfg.UserAgent,
		Timeout:   siteCfg.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to start %s fetcher: %v", siteCfg.Fetcher, err)
	}
	defer f.Close()

	// 3. Run Scraper
	started := time.Now()
	res, err := scraper.Run(ctx, f, siteCfg, scraper.RunOptions{})
	if err != nil {
		log.Fatalf("Scraping failed: %v", err)
	}
	finished := time.Now()
	log.Printf("Scraper found %d units in %d queries.", len(res.Units), len(res.Queries))

	// 4. Reports
	summary := aggregate.Summarize(res.Units, siteCfg.FlatTypes, siteCfg.Expected())
	paths := scrapePaths.resolve(appCfg.OutputDir, siteCfg.Name)
	if err := report.WriteAll(paths, res.Units, summary, finished); err != nil {
		log.Fatalf("Failed to write reports: %v", err)
	}
	log.Printf("Reports written to %s, %s and %s", paths.JSON, paths.CSV, paths.Log)
	report.PrintSummary(os.Stdout, summary)
	if !summary.Healthy {
		log.Printf("Health check failed, see %s", paths.Log)
	}

	if scrapeNoDB {
		return
	}

	// 5. Save to DB
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	// Units missing from this run stay in the table as inactive.
	newlyBooked, err := db.SaveUnits(database, res.Units)
	if err != nil {
		log.Fatalf("Failed to save units: %v", err)
	}

	overall := summary.Overall()
	id, err := db.RecordRun(database, models.Run{
		StartedAt:   started,
		FinishedAt:  finished,
		UnitCount:   overall.Total,
		BookedCount: overall.Booked,
		Healthy:     summary.Healthy,
	})
	if err != nil {
		log.Fatalf("Failed to record run: %v", err)
	}
	log.Printf("SUCCESS: Run #%d saved, %d units booked since the last run.", id, newlyBooked)
}
