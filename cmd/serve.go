package cmd

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/flat-watch/internal/db"
	"mspro-labs/flat-watch/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Web UI server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command) {
	// 1. Setup
	appCfg, siteCfg := loadConfigs()
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	// 2. Templates are parsed once, up front
	s, err := web.NewServer(database, siteCfg)
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// 3. Start Server
	server := &http.Server{
		Addr:         serveAddr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-cmd.Context().Done()
		server.Close()
	}()

	log.Printf("Web UI started at http://localhost%s", serveAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
