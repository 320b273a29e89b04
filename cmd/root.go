package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"mspro-labs/flat-watch/internal/config"
	"mspro-labs/flat-watch/internal/report"
)

var rootCmd = &cobra.Command{
	Use:   "flat-watch",
	Short: "flat-watch tracks unit availability of a public housing sales exercise.",
}

// ExecuteContext runs the command named on the command line.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigs reads the environment, then the site config it points at.
func loadConfigs() (config.AppConfig, *config.SiteConfig) {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	siteCfg, err := config.LoadSiteConfig(appCfg.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load site config: %v", err)
	}
	return appCfg, siteCfg
}

// pathFlags holds the --json/--csv/--log overrides shared by scrape and report.
type pathFlags struct {
	json, csv, log string
}

func addPathFlags(c *cobra.Command) *pathFlags {
	p := &pathFlags{}
	c.Flags().StringVar(&p.json, "json", "", "Path of the JSON report (default <OUTPUT_DIR>/<name>.json)")
	c.Flags().StringVar(&p.csv, "csv", "", "Path of the CSV report (default <OUTPUT_DIR>/<name>.csv)")
	c.Flags().StringVar(&p.log, "log", "", "Path of the health-check log (default <OUTPUT_DIR>/<name>.log)")
	return p
}

func (p *pathFlags) resolve(dir, name string) report.Paths {
	paths := report.DefaultPaths(dir, name)
	if p.json != "" {
		paths.JSON = p.json
	}
	if p.csv != "" {
		paths.CSV = p.csv
	}
	if p.log != "" {
		paths.Log = p.log
	}
	return paths
}
