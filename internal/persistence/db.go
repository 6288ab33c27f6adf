// Package persistence provides SQLite-backed storage for colony state:
// planet records, the player ledger table, and the event log.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

// DB wraps a SQLite connection for colony state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection for collaborators that manage
// their own tables (the SQL ledger).
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS planets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		sector_id INTEGER NOT NULL,
		planet_type INTEGER NOT NULL,
		colonists INTEGER NOT NULL,
		max_colonists INTEGER NOT NULL,
		specialization INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		allocations_json TEXT NOT NULL,
		production_json TEXT NOT NULL,
		buildings_json TEXT NOT NULL,
		defenses_json TEXT NOT NULL,
		siege_json TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		type TEXT NOT NULL,
		planet_id TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
	CREATE INDEX IF NOT EXISTS idx_events_planet ON events(planet_id);
	CREATE INDEX IF NOT EXISTS idx_planets_owner ON planets(owner_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SavePlanets writes all planets to the database (full replace).
func (db *DB) SavePlanets(planets []*colony.Planet) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM planets"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO planets
		(id, name, owner_id, sector_id, planet_type, colonists, max_colonists,
		 specialization, created_at, allocations_json, production_json,
		 buildings_json, defenses_json, siege_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range planets {
		allocJSON, _ := json.Marshal(p.Allocations)
		prodJSON, _ := json.Marshal(p.Production)
		buildJSON, _ := json.Marshal(buildingsForStorage(p.Buildings))
		defJSON, _ := json.Marshal(p.Defenses)

		var siegeJSON *string
		if p.Siege != nil {
			raw, _ := json.Marshal(p.Siege)
			s := string(raw)
			siegeJSON = &s
		}

		_, err := stmt.Exec(
			p.ID, p.Name, p.OwnerID, p.SectorID, p.Type,
			p.Colonists, p.MaxColonists, p.Specialization,
			p.CreatedAt.Unix(),
			string(allocJSON), string(prodJSON), string(buildJSON), string(defJSON),
			siegeJSON,
		)
		if err != nil {
			return fmt.Errorf("insert planet %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

type planetRow struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	OwnerID         string  `db:"owner_id"`
	SectorID        uint64  `db:"sector_id"`
	PlanetType      uint8   `db:"planet_type"`
	Colonists       int     `db:"colonists"`
	MaxColonists    int     `db:"max_colonists"`
	Specialization  uint8   `db:"specialization"`
	CreatedAt       int64   `db:"created_at"`
	AllocationsJSON string  `db:"allocations_json"`
	ProductionJSON  string  `db:"production_json"`
	BuildingsJSON   string  `db:"buildings_json"`
	DefensesJSON    string  `db:"defenses_json"`
	SiegeJSON       *string `db:"siege_json"`
}

// LoadPlanets reads every planet from the database.
func (db *DB) LoadPlanets() ([]*colony.Planet, error) {
	var rows []planetRow
	if err := db.conn.Select(&rows, "SELECT * FROM planets"); err != nil {
		return nil, fmt.Errorf("load planets: %w", err)
	}

	out := make([]*colony.Planet, 0, len(rows))
	for _, r := range rows {
		p := &colony.Planet{
			ID:             r.ID,
			Name:           r.Name,
			OwnerID:        r.OwnerID,
			SectorID:       r.SectorID,
			Type:           colony.PlanetType(r.PlanetType),
			Colonists:      r.Colonists,
			MaxColonists:   r.MaxColonists,
			Specialization: colony.Specialization(r.Specialization),
			CreatedAt:      time.Unix(r.CreatedAt, 0).UTC(),
		}

		if err := json.Unmarshal([]byte(r.AllocationsJSON), &p.Allocations); err != nil {
			return nil, fmt.Errorf("planet %s allocations: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.ProductionJSON), &p.Production); err != nil {
			return nil, fmt.Errorf("planet %s production: %w", r.ID, err)
		}
		var stored map[string]*colony.Building
		if err := json.Unmarshal([]byte(r.BuildingsJSON), &stored); err != nil {
			return nil, fmt.Errorf("planet %s buildings: %w", r.ID, err)
		}
		p.Buildings = buildingsFromStorage(stored)
		if err := json.Unmarshal([]byte(r.DefensesJSON), &p.Defenses); err != nil {
			return nil, fmt.Errorf("planet %s defenses: %w", r.ID, err)
		}
		if r.SiegeJSON != nil {
			p.Siege = &colony.Siege{}
			if err := json.Unmarshal([]byte(*r.SiegeJSON), p.Siege); err != nil {
				return nil, fmt.Errorf("planet %s siege: %w", r.ID, err)
			}
		}

		out = append(out, p)
	}
	return out, nil
}

// buildingsForStorage keys the building map by name so the stored form
// stays readable and stable across enum reordering.
func buildingsForStorage(m map[colony.BuildingType]*colony.Building) map[string]*colony.Building {
	out := make(map[string]*colony.Building, len(m))
	for t, b := range m {
		out[t.String()] = b
	}
	return out
}

func buildingsFromStorage(stored map[string]*colony.Building) map[colony.BuildingType]*colony.Building {
	out := colony.NewBuildings()
	for name, b := range stored {
		t, err := colony.ParseBuildingType(name)
		if err != nil {
			continue // unknown building name from a newer schema; keep level 0
		}
		out[t] = b
	}
	return out
}

// SaveEvent appends one event to the log.
func (db *DB) SaveEvent(ev events.Event) error {
	_, err := db.conn.Exec(
		"INSERT INTO events (at, type, planet_id, description) VALUES (?, ?, ?, ?)",
		ev.At.Unix(), string(ev.Type), ev.PlanetID, ev.Description,
	)
	return err
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]events.Event, error) {
	var rows []struct {
		At          int64  `db:"at"`
		Type        string `db:"type"`
		PlanetID    string `db:"planet_id"`
		Description string `db:"description"`
	}
	err := db.conn.Select(&rows,
		"SELECT at, type, planet_id, description FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]events.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, events.Event{
			Type:        events.Type(r.Type),
			PlanetID:    r.PlanetID,
			Description: r.Description,
			At:          time.Unix(r.At, 0).UTC(),
		})
	}
	return out, nil
}

// SaveColonyState performs a full save of all planet state.
func (db *DB) SaveColonyState(store *colony.Store) error {
	planets := store.Snapshots()
	if err := db.SavePlanets(planets); err != nil {
		return fmt.Errorf("save planets: %w", err)
	}
	slog.Info("colony state saved", "planets", len(planets))
	return nil
}

// RecordEvents drains a bus subscription into the event log. Call in a
// goroutine; returns when the channel closes.
func (db *DB) RecordEvents(ch <-chan events.Event) {
	for ev := range ch {
		if err := db.SaveEvent(ev); err != nil {
			slog.Error("event log write failed", "type", ev.Type, "error", err)
		}
	}
}
