package cmd

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/flat-watch/internal/aggregate"
	"mspro-labs/flat-watch/internal/db"
	"mspro-labs/flat-watch/internal/report"
)

var reportPaths *pathFlags

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the reports from the last recorded run",
	Long:  `Reads the units seen in the latest run from the local database and writes the JSON, CSV and health-check reports again. No request is made to the portal.`,
	Run: func(cmd *cobra.Command, args []string) {
		runReport()
	},
}

func init() {
	reportPaths = addPathFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport() {
	appCfg, siteCfg := loadConfigs()

	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	run, err := db.LatestRun(database)
	if err != nil {
		log.Fatalf("No recorded run to report on: %v", err)
	}
	units, err := db.GetActiveUnits(database)
	if err != nil {
		log.Fatalf("Failed to load units: %v", err)
	}
	aggregate.SortUnits(units)
	log.Printf("Rebuilding reports for run #%d (%s) with %d units", run.ID, run.FinishedAt.Local().Format(time.DateTime), len(units))

	summary := aggregate.Summarize(units, siteCfg.FlatTypes, siteCfg.Expected())
	paths := reportPaths.resolve(appCfg.OutputDir, siteCfg.Name)
	if err := report.WriteAll(paths, units, summary, run.FinishedAt.Local()); err != nil {
		log.Fatalf("Failed to write reports: %v", err)
	}
	report.PrintSummary(os.Stdout, summary)
}
