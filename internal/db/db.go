package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/flat-watch/internal/models"
)

var logger = log.New(os.Stdout, "DB: ", log.LstdFlags|log.Lshortfile)

// Connect opens a connection to the SQLite database and ensures the schema exists.
// It automatically applies recommended settings for concurrency (WAL mode).
func Connect(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MarkAllAsInactive sets is_active=0 for all units.
// SaveUnits calls it inside its transaction before the upsert.
func MarkAllAsInactive(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx, `UPDATE units SET is_active = 0 WHERE is_active = 1;`)
	if err != nil {
		return fmt.Errorf("failed to mark units as inactive: %w", err)
	}
	return nil
}

func createSchema(db *sql.DB) error {
	unitsTable := `
	CREATE TABLE IF NOT EXISTS units (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  block TEXT NOT NULL,
	  flat_type TEXT NOT NULL,
	  unit_no TEXT NOT NULL,
	  floor TEXT,
	  stack TEXT,
	  booked INTEGER NOT NULL DEFAULT 0,
	  cost TEXT,
	  size TEXT,
	  first_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  booked_at TIMESTAMP,
	  last_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  is_active INTEGER DEFAULT 1,
	  UNIQUE (block, flat_type, unit_no)
	);
	CREATE INDEX IF NOT EXISTS idx_units_is_active ON units(is_active);
	`
	if _, err := db.Exec(unitsTable); err != nil {
		return err
	}

	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  started_at TIMESTAMP NOT NULL,
	  finished_at TIMESTAMP NOT NULL,
	  unit_count INTEGER NOT NULL,
	  booked_count INTEGER NOT NULL,
	  healthy INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(runsTable); err != nil {
		return err
	}

	return nil
}

// SaveUnits replaces the active set with units in one transaction: every stored
// unit is marked inactive, then units are upserted as active. A failure rolls
// both back. It returns how many previously available units are now booked.
// Booked units keep their last known cost and size in the table.
func SaveUnits(db *sql.DB, units []models.Unit) (int, error) {
	upsertSQL := `
	INSERT INTO units (
	  block, flat_type, unit_no, floor, stack, booked, cost, size,
	  booked_at, last_seen_at, is_active
	) VALUES (
	  ?, ?, ?, ?, ?, ?, ?, ?,
	  CASE WHEN ? THEN CURRENT_TIMESTAMP END, CURRENT_TIMESTAMP, 1
	) ON CONFLICT(block, flat_type, unit_no) DO UPDATE SET
	  floor = excluded.floor,
	  stack = excluded.stack,
	  booked = excluded.booked,
	  cost = CASE WHEN excluded.booked THEN units.cost ELSE excluded.cost END,
	  size = CASE WHEN excluded.booked THEN units.size ELSE excluded.size END,
	  booked_at = CASE
	    WHEN excluded.booked AND NOT units.booked THEN CURRENT_TIMESTAMP
	    WHEN NOT excluded.booked THEN NULL
	    ELSE units.booked_at END,
	  last_seen_at = CURRENT_TIMESTAMP,
	  is_active = 1;
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	previous, err := bookedStates(ctx, tx)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := MarkAllAsInactive(ctx, tx); err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	newlyBooked := 0
	for _, u := range units {
		_, err := stmt.ExecContext(ctx,
			u.Block, u.FlatType, u.UnitNo, u.Floor, u.Stack, u.Booked,
			sql.NullString{String: u.Cost, Valid: u.Cost != ""},
			sql.NullString{String: u.Size, Valid: u.Size != ""},
			u.Booked,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to upsert %s %s %s: %w", u.Block, u.FlatType, u.UnitNo, err)
		}
		if wasBooked, ok := previous[unitKey(u)]; ok && !wasBooked && u.Booked {
			newlyBooked++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	logger.Printf("Upserted %d units, %d newly booked", len(units), newlyBooked)
	return newlyBooked, nil
}

func unitKey(u models.Unit) string {
	return u.Block + "\x00" + u.FlatType + "\x00" + u.UnitNo
}

func bookedStates(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT block, flat_type, unit_no, booked FROM units`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.Block, &u.FlatType, &u.UnitNo, &u.Booked); err != nil {
			return nil, err
		}
		states[unitKey(u)] = u.Booked
	}
	return states, rows.Err()
}

// GetActiveUnits returns the units seen in the latest run, in canonical order.
// Booked units come back without cost and size, as they were scraped.
func GetActiveUnits(db *sql.DB) ([]models.Unit, error) {
	rows, err := db.Query(`
		SELECT block, flat_type, unit_no, floor, stack, booked,
		  CASE WHEN booked THEN '' ELSE COALESCE(cost, '') END,
		  CASE WHEN booked THEN '' ELSE COALESCE(size, '') END
		FROM units
		WHERE is_active = 1
		ORDER BY block, flat_type, stack, floor
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.Block, &u.FlatType, &u.UnitNo, &u.Floor, &u.Stack, &u.Booked, &u.Cost, &u.Size); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// RecordRun stores the outcome of one scrape and returns its id.
func RecordRun(db *sql.DB, r models.Run) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO runs (started_at, finished_at, unit_count, booked_count, healthy) VALUES (?, ?, ?, ?, ?)`,
		r.StartedAt.UTC(), r.FinishedAt.UTC(), r.UnitCount, r.BookedCount, r.Healthy,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// ListRuns returns recorded runs, newest first.
func ListRuns(db *sql.DB) ([]models.Run, error) {
	rows, err := db.Query(`
		SELECT id, started_at, finished_at, unit_count, booked_count, healthy
		FROM runs
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.UnitCount, &r.BookedCount, &r.Healthy); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run, or sql.ErrNoRows when none is recorded.
func LatestRun(db *sql.DB) (models.Run, error) {
	var r models.Run
	err := db.QueryRow(`
		SELECT id, started_at, finished_at, unit_count, booked_count, healthy
		FROM runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.UnitCount, &r.BookedCount, &r.Healthy)
	return r, err
}
