package cmd

import (
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mspro-labs/flat-watch/internal/config"
	"mspro-labs/flat-watch/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scrape runs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		runHistory()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory() {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	runs, err := db.ListRuns(database)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		log.Println("No runs recorded yet.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Finished", "Duration", "Units", "Booked", "Health"})
	for _, r := range runs {
		health := "OK"
		if !r.Healthy {
			health = "FAIL"
		}
		t.AppendRow(table.Row{
			r.ID,
			r.FinishedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.UnitCount,
			r.BookedCount,
			health,
		})
	}
	t.Render()
}
