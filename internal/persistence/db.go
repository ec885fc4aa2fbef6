// Package persistence archives finished runs in SQLite and writes per-tick
// traces to compressed JSONL files.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/stormfield/internal/economy"
	"github.com/talgya/stormfield/internal/engine"
	"github.com/talgya/stormfield/internal/world"
)

// DB wraps a SQLite connection for the run archive.
type DB struct {
	conn *sqlx.DB
}

// Run is the summary row for one archived run.
type Run struct {
	ID         string `db:"id" json:"id"`
	Seed       int64  `db:"seed" json:"seed"`
	StartedAt  int64  `db:"started_at" json:"started_at"` // Unix seconds
	Ticks      int64  `db:"ticks" json:"ticks"`
	Delivered  int    `db:"delivered" json:"delivered"`
	Deliveries int    `db:"deliveries" json:"deliveries"`
	Storms     int    `db:"storms" json:"storms"`
	Finished   bool   `db:"finished" json:"finished"`
}

// AgentTotal is one agent's final tally in an archived run.
type AgentTotal struct {
	RunID     string `db:"run_id" json:"-"`
	AgentID   int64  `db:"agent_id" json:"agent_id"`
	Name      string `db:"name" json:"name"`
	Variant   string `db:"variant" json:"variant"`
	Value     int    `db:"value" json:"value"`
	Crystal   int    `db:"crystal" json:"crystal"`
	Metal     int    `db:"metal" json:"metal"`
	Structure int    `db:"structure" json:"structure"`
}

// DeliveryRow is an archived ledger entry.
type DeliveryRow struct {
	Tick       int64  `db:"tick" json:"tick"`
	AgentID    int64  `db:"agent_id" json:"agent_id"`
	ResourceID int64  `db:"resource_id" json:"resource_id"`
	Kind       string `db:"kind" json:"kind"`
	Value      int    `db:"value" json:"value"`
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

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		delivered INTEGER NOT NULL,
		deliveries INTEGER NOT NULL,
		storms INTEGER NOT NULL,
		finished INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		resource_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_totals (
		run_id TEXT NOT NULL REFERENCES runs(id),
		agent_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		variant TEXT NOT NULL,
		value INTEGER NOT NULL,
		crystal INTEGER NOT NULL,
		metal INTEGER NOT NULL,
		structure INTEGER NOT NULL,
		PRIMARY KEY (run_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_run ON deliveries(run_id, id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Summarize builds the archive rows for a run from its final snapshot and
// ledger.
func Summarize(snap engine.Snapshot, seed int64, started time.Time, finished bool) (Run, []AgentTotal) {
	run := Run{
		ID:         snap.RunID,
		Seed:       seed,
		StartedAt:  started.Unix(),
		Ticks:      int64(snap.Tick),
		Delivered:  snap.Delivered,
		Deliveries: snap.Stats.Deliveries,
		Storms:     snap.Storm.Storms,
		Finished:   finished,
	}
	totals := make([]AgentTotal, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		t := snap.Ledger[a.ID]
		totals = append(totals, AgentTotal{
			RunID:     snap.RunID,
			AgentID:   int64(a.ID),
			Name:      a.Name,
			Variant:   a.Variant,
			Value:     t.Value,
			Crystal:   t.Count[world.KindCrystal],
			Metal:     t.Count[world.KindMetal],
			Structure: t.Count[world.KindStructure],
		})
	}
	return run, totals
}

// SaveRun writes a run summary with its deliveries and per-agent totals in
// one transaction. Saving the same run ID again replaces the earlier rows.
func (db *DB) SaveRun(run Run, deliveries []economy.Delivery, totals []AgentTotal) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty run id")
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"deliveries", "agent_totals", "runs"} {
		key := "run_id"
		if table == "runs" {
			key = "id"
		}
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+key+" = ?", run.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.NamedExec(`INSERT INTO runs
		(id, seed, started_at, ticks, delivered, deliveries, storms, finished)
		VALUES (:id, :seed, :started_at, :ticks, :delivered, :deliveries, :storms, :finished)`, run)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO deliveries
		(run_id, tick, agent_id, resource_id, kind, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range deliveries {
		_, err := stmt.Exec(run.ID, int64(d.Tick), int64(d.AgentID), int64(d.ResourceID), d.Kind.String(), d.Value)
		if err != nil {
			return fmt.Errorf("insert delivery of resource %d: %w", d.ResourceID, err)
		}
	}

	for _, t := range totals {
		t.RunID = run.ID
		_, err := tx.NamedExec(`INSERT INTO agent_totals
			(run_id, agent_id, name, variant, value, crystal, metal, structure)
			VALUES (:run_id, :agent_id, :name, :variant, :value, :crystal, :metal, :structure)`, t)
		if err != nil {
			return fmt.Errorf("insert totals for agent %d: %w", t.AgentID, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('last_run', ?)", run.ID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run archived", "run", run.ID, "deliveries", len(deliveries), "delivered", run.Delivered)
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	runs := []Run{}
	err := db.conn.Select(&runs,
		"SELECT id, seed, started_at, ticks, delivered, deliveries, storms, finished FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// Run returns one archived run.
func (db *DB) Run(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run,
		"SELECT id, seed, started_at, ticks, delivered, deliveries, storms, finished FROM runs WHERE id = ?", id)
	return run, err
}

// RunTotals returns the per-agent totals of a run in agent order.
func (db *DB) RunTotals(id string) ([]AgentTotal, error) {
	totals := []AgentTotal{}
	err := db.conn.Select(&totals,
		"SELECT run_id, agent_id, name, variant, value, crystal, metal, structure FROM agent_totals WHERE run_id = ? ORDER BY agent_id", id)
	return totals, err
}

// RunDeliveries returns the ledger of a run in registration order.
func (db *DB) RunDeliveries(id string) ([]DeliveryRow, error) {
	rows := []DeliveryRow{}
	err := db.conn.Select(&rows,
		"SELECT tick, agent_id, resource_id, kind, value FROM deliveries WHERE run_id = ? ORDER BY id", id)
	return rows, err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
