// Package web serves a read-only view of the history store.
package web

import (
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"os"

	"mspro-labs/flat-watch/internal/aggregate"
	"mspro-labs/flat-watch/internal/config"
	"mspro-labs/flat-watch/internal/db"
	"mspro-labs/flat-watch/internal/models"
)

// Embed the 'templates' directory.
// The path is relative to this file (internal/web/web.go).
//
//go:embed templates
var Assets embed.FS

var logger = log.New(os.Stdout, "WEB: ", log.LstdFlags|log.Lshortfile)

type Server struct {
	db        *sql.DB
	site      *config.SiteConfig
	homeTmpl  *template.Template
	unitsTmpl *template.Template
}

type homeData struct {
	Site    string
	Run     *models.Run
	Summary aggregate.Summary
	Overall aggregate.Tally
}

type unitsData struct {
	Site     string
	Block    string
	FlatType string
	Blocks   []string
	Types    []string
	Units    []models.Unit
}

// NewServer parses the templates once. Every request reads the database anew.
func NewServer(database *sql.DB, site *config.SiteConfig) (*Server, error) {
	// Pre-build Templates (SEPARATELY to avoid block collisions)
	base, err := template.New("base.html").ParseFS(Assets, "templates/base.html")
	if err != nil {
		return nil, err
	}
	homeTmpl, err := template.Must(base.Clone()).ParseFS(Assets, "templates/home.html")
	if err != nil {
		return nil, err
	}
	unitsTmpl, err := template.Must(base.Clone()).ParseFS(Assets, "templates/units.html")
	if err != nil {
		return nil, err
	}
	return &Server{db: database, site: site, homeTmpl: homeTmpl, unitsTmpl: unitsTmpl}, nil
}

// Handler returns the routes of the UI.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.home)
	mux.HandleFunc("/units", s.units)
	return mux
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := homeData{Site: s.site.Name}
	run, err := db.LatestRun(s.db)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		logger.Printf("DB error: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	default:
		data.Run = &run
	}

	units, err := db.GetActiveUnits(s.db)
	if err != nil {
		logger.Printf("DB error: %v", err)
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}
	data.Summary = aggregate.Summarize(units, s.site.FlatTypes, s.site.Expected())
	data.Overall = data.Summary.Overall()

	if err := s.homeTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		logger.Printf("Template error: %v", err)
	}
}

func (s *Server) units(w http.ResponseWriter, r *http.Request) {
	block := r.URL.Query().Get("block")
	flatType := r.URL.Query().Get("flat_type")

	all, err := db.GetActiveUnits(s.db)
	if err != nil {
		logger.Printf("DB error: %v", err)
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}

	data := unitsData{Site: s.site.Name, Block: block, FlatType: flatType, Types: s.site.FlatTypes}
	for _, b := range s.site.Blocks {
		data.Blocks = append(data.Blocks, b.Name)
	}
	for _, u := range all {
		if block != "" && u.Block != block {
			continue
		}
		if flatType != "" && u.FlatType != flatType {
			continue
		}
		data.Units = append(data.Units, u)
	}

	if err := s.unitsTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		logger.Printf("Template error: %v", err)
	}
}
