// Package telemetry is an optional diagnostic sink recording every delta
// marked for transmission, for offline rater tuning and replay. The core
// engine never imports this package; callers wire it in through
// transport.Server's OnTransmit hook if they want it.
package telemetry

import (
	"database/sql"
	"embed"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sink is a SQLite-backed record of every delta the engine has marked for
// transmission, for offline analysis and the delta-replay tool.
type Sink struct {
	db *sql.DB
}

// Open creates or opens the sink database at path and brings its schema
// up to the latest migration.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: migrate: %w", err)
	}

	return &Sink{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", target)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Sink) Close() error { return s.db.Close() }

// Event is one recorded transmission-bound delta.
type Event struct {
	ClientIdx int
	Kind      int
	ObjectID  uint32
	Flags     uint32
	Score     float64
	Set       uint32
	Resend    uint32
	Tic       int32
}

// Record inserts one transmission event. It is meant to be called from
// transport.Server's OnTransmit hook, once per delta as it leaves
// Engine.ExtractNext.
func (s *Sink) Record(e Event) error {
	_, err := s.db.Exec(
		`INSERT INTO delta_events (client_idx, kind, object_id, flags, score, tx_set, resend, tic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ClientIdx, e.Kind, e.ObjectID, e.Flags, e.Score, e.Set, e.Resend, e.Tic,
	)
	return err
}

// Events returns the most recent recorded events, newest first, for a
// given client (or every client if clientIdx < 0).
func (s *Sink) Events(clientIdx, limit int) ([]Event, error) {
	var rows *sql.Rows
	var err error
	if clientIdx < 0 {
		rows, err = s.db.Query(
			`SELECT client_idx, kind, object_id, flags, score, tx_set, resend, tic
			 FROM delta_events ORDER BY event_id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT client_idx, kind, object_id, flags, score, tx_set, resend, tic
			 FROM delta_events WHERE client_idx = ? ORDER BY event_id DESC LIMIT ?`, clientIdx, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ClientIdx, &e.Kind, &e.ObjectID, &e.Flags, &e.Score, &e.Set, &e.Resend, &e.Tic); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AttachDebugRoutes exposes a live SQL console over the sink database,
// for ad-hoc inspection of recorded traffic during development.
func (s *Sink) AttachDebugRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
	if err != nil {
		return fmt.Errorf("telemetry: tailsql: %w", err)
	}
	tsql.SetDB("sqlite://deltapool-telemetry", s.db, &tailsql.DBOptions{Label: "Delta Pool Telemetry"})
	debug.Handle("tailsql/", "Delta traffic SQL console", tsql.NewMux())
	return nil
}
