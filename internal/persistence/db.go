// Package persistence provides SQLite-based storage for run results.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/climate-net/internal/engine"
)

// DB wraps a SQLite connection for results storage.
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

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		run_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		population INTEGER NOT NULL,
		wealth REAL NOT NULL,
		production REAL NOT NULL,
		consumption REAL NOT NULL,
		trades INTEGER NOT NULL,
		overhead REAL NOT NULL,
		stressed INTEGER NOT NULL,
		stressed_before_sweep INTEGER NOT NULL,
		bankruptcies INTEGER NOT NULL,
		replacements INTEGER NOT NULL,
		replacement_failures INTEGER NOT NULL,
		phase_failures INTEGER NOT NULL,
		fired_shocks_json TEXT NOT NULL,
		chronic_json TEXT NOT NULL,
		PRIMARY KEY (run_id, round)
	);

	CREATE TABLE IF NOT EXISTS round_types (
		run_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		agent_type TEXT NOT NULL,
		population INTEGER NOT NULL,
		wealth REAL NOT NULL,
		production REAL NOT NULL,
		consumption REAL NOT NULL,
		trades INTEGER NOT NULL,
		overhead REAL NOT NULL,
		stressed INTEGER NOT NULL,
		PRIMARY KEY (run_id, round, agent_type)
	);

	CREATE TABLE IF NOT EXISTS shock_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		rule TEXT NOT NULL,
		kind TEXT NOT NULL,
		affected INTEGER NOT NULL,
		types_json TEXT NOT NULL,
		locations_json TEXT NOT NULL,
		productivity_factor REAL,
		overhead_factor REAL
	);

	CREATE TABLE IF NOT EXISTS network_nodes (
		run_id TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		location TEXT NOT NULL,
		degree INTEGER NOT NULL,
		PRIMARY KEY (run_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS network_edges (
		run_id TEXT NOT NULL,
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (run_id, src, dst)
	);

	CREATE TABLE IF NOT EXISTS agent_performance (
		run_id TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		location TEXT NOT NULL,
		money REAL NOT NULL,
		born_round INTEGER NOT NULL,
		retired_round INTEGER NOT NULL,
		bankrupt INTEGER NOT NULL,
		produced REAL NOT NULL,
		consumed REAL NOT NULL,
		trades INTEGER NOT NULL,
		revenue REAL NOT NULL,
		costs REAL NOT NULL,
		overhead REAL NOT NULL,
		traits_json TEXT NOT NULL,
		inventory_json TEXT NOT NULL,
		PRIMARY KEY (run_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shock_events_run ON shock_events(run_id, round);
	CREATE INDEX IF NOT EXISTS idx_performance_type ON agent_performance(run_id, agent_type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

var runTables = []string{
	"runs", "rounds", "round_types", "shock_events",
	"network_nodes", "network_edges", "agent_performance",
}

// SaveResults writes a run in one transaction, replacing any earlier copy
// of the same run.
func (db *DB) SaveResults(res *engine.Results) error {
	slog.Info("saving results", "run", res.RunID, "rounds", len(res.Rounds), "agents", len(res.Performance))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range runTables {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", res.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	st := res.Network.Stats
	if _, err := tx.Exec(
		"INSERT INTO runs (run_id, seed, rounds, strategy, nodes, edges) VALUES (?, ?, ?, ?, ?, ?)",
		res.RunID, res.Seed, len(res.Rounds), string(res.Network.Strategy), st.Nodes, st.Edges,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := saveRounds(tx, res); err != nil {
		return fmt.Errorf("save rounds: %w", err)
	}
	if err := saveShocks(tx, res); err != nil {
		return fmt.Errorf("save shocks: %w", err)
	}
	if err := saveNetwork(tx, res); err != nil {
		return fmt.Errorf("save network: %w", err)
	}
	if err := savePerformance(tx, res); err != nil {
		return fmt.Errorf("save performance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("results saved", "run", res.RunID)
	return nil
}

func saveRounds(tx *sqlx.Tx, res *engine.Results) error {
	stmt, err := tx.Preparex(`INSERT INTO rounds
		(run_id, round, population, wealth, production, consumption, trades, overhead,
		 stressed, stressed_before_sweep, bankruptcies, replacements, replacement_failures,
		 phase_failures, fired_shocks_json, chronic_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	typeStmt, err := tx.Preparex(`INSERT INTO round_types
		(run_id, round, agent_type, population, wealth, production, consumption, trades, overhead, stressed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer typeStmt.Close()

	for _, r := range res.Rounds {
		fired, _ := json.Marshal(nonNil(r.FiredShocks))
		chronic, _ := json.Marshal(nonNil(r.ChronicApplied))
		t := r.Total
		_, err := stmt.Exec(
			res.RunID, r.Round, t.Population, t.Wealth, t.Production, t.Consumption, t.Trades, t.Overhead,
			t.Stressed, r.StressedBeforeSweep, r.Bankruptcies, r.Replacements, r.ReplacementFailures,
			r.PhaseFailures, string(fired), string(chronic),
		)
		if err != nil {
			return fmt.Errorf("insert round %d: %w", r.Round, err)
		}
		for name, a := range r.ByType {
			_, err := typeStmt.Exec(
				res.RunID, r.Round, name, a.Population, a.Wealth, a.Production, a.Consumption, a.Trades, a.Overhead, a.Stressed,
			)
			if err != nil {
				return fmt.Errorf("insert round %d type %s: %w", r.Round, name, err)
			}
		}
	}
	return nil
}

func saveShocks(tx *sqlx.Tx, res *engine.Results) error {
	for _, e := range res.Shocks {
		types, _ := json.Marshal(nonNil(e.TargetTypes))
		locs, _ := json.Marshal(nonNil(e.TargetLocations))
		_, err := tx.Exec(`INSERT INTO shock_events
			(run_id, round, rule, kind, affected, types_json, locations_json, productivity_factor, overhead_factor)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, e.Round, e.Rule, string(e.Kind), len(e.Agents), string(types), string(locs),
			e.ProductivityFactor, e.OverheadFactor,
		)
		if err != nil {
			return fmt.Errorf("insert shock %s round %d: %w", e.Rule, e.Round, err)
		}
	}
	return nil
}

func saveNetwork(tx *sqlx.Tx, res *engine.Results) error {
	for _, n := range res.Network.Nodes {
		_, err := tx.Exec(`INSERT INTO network_nodes
			(run_id, agent_id, name, agent_type, location, degree) VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID, int64(n.ID), n.Name, n.Type, n.Location, n.Degree,
		)
		if err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}
	stmt, err := tx.Preparex("INSERT INTO network_edges (run_id, src, dst, weight) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range res.Network.Edges {
		if _, err := stmt.Exec(res.RunID, int64(e.From), int64(e.To), e.Weight); err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", e.From, e.To, err)
		}
	}
	return nil
}

func savePerformance(tx *sqlx.Tx, res *engine.Results) error {
	stmt, err := tx.Preparex(`INSERT INTO agent_performance
		(run_id, agent_id, name, agent_type, location, money, born_round, retired_round, bankrupt,
		 produced, consumed, trades, revenue, costs, overhead, traits_json, inventory_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range res.Performance {
		traits, _ := json.Marshal(p.Traits)
		inv, _ := json.Marshal(p.Inventory)

		bankrupt := 0
		if p.Bankrupt {
			bankrupt = 1
		}

		_, err := stmt.Exec(
			res.RunID, int64(p.ID), p.Name, p.Type, p.Location, p.Money, p.BornRound, p.RetiredRound, bankrupt,
			p.Totals.Produced, p.Totals.Consumed, p.Totals.Trades, p.Totals.Revenue, p.Totals.Costs, p.Totals.Overhead,
			string(traits), string(inv),
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", p.ID, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RunRow is one stored run.
type RunRow struct {
	RunID    string `db:"run_id" json:"run_id"`
	Seed     int64  `db:"seed" json:"seed"`
	Rounds   int    `db:"rounds" json:"rounds"`
	Strategy string `db:"strategy" json:"strategy"`
	Nodes    int    `db:"nodes" json:"nodes"`
	Edges    int    `db:"edges" json:"edges"`
}

// Runs lists stored runs.
func (db *DB) Runs() ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs, "SELECT run_id, seed, rounds, strategy, nodes, edges FROM runs ORDER BY run_id")
	return runs, err
}

// Run returns one stored run. The error wraps sql.ErrNoRows when the
// run is unknown.
func (db *DB) Run(runID string) (RunRow, error) {
	var run RunRow
	err := db.conn.Get(&run, "SELECT run_id, seed, rounds, strategy, nodes, edges FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return RunRow{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

// RoundRow is the stored total for one round.
type RoundRow struct {
	Round               int     `db:"round" json:"round"`
	Population          int     `db:"population" json:"population"`
	Wealth              float64 `db:"wealth" json:"wealth"`
	Production          float64 `db:"production" json:"production"`
	Consumption         float64 `db:"consumption" json:"consumption"`
	Trades              int     `db:"trades" json:"trades"`
	Overhead            float64 `db:"overhead" json:"overhead"`
	Stressed            int     `db:"stressed" json:"stressed"`
	StressedBeforeSweep int     `db:"stressed_before_sweep" json:"stressed_before_sweep"`
	Bankruptcies        int     `db:"bankruptcies" json:"bankruptcies"`
	Replacements        int     `db:"replacements" json:"replacements"`
	FiredShocks         string  `db:"fired_shocks_json" json:"-"`
}

// LoadRounds returns a run's round totals in round order.
func (db *DB) LoadRounds(runID string) ([]RoundRow, error) {
	var rows []RoundRow
	err := db.conn.Select(&rows, `SELECT round, population, wealth, production, consumption, trades,
		overhead, stressed, stressed_before_sweep, bankruptcies, replacements, fired_shocks_json
		FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	return rows, err
}

// ShockRow is one stored shock event.
type ShockRow struct {
	Round              int      `db:"round" json:"round"`
	Rule               string   `db:"rule" json:"rule"`
	Kind               string   `db:"kind" json:"kind"`
	Affected           int      `db:"affected" json:"affected"`
	ProductivityFactor *float64 `db:"productivity_factor" json:"productivity_factor"`
	OverheadFactor     *float64 `db:"overhead_factor" json:"overhead_factor"`
}

// RecentShocks returns the most recent N shock events of a run.
func (db *DB) RecentShocks(runID string, limit int) ([]ShockRow, error) {
	var rows []ShockRow
	err := db.conn.Select(&rows, `SELECT round, rule, kind, affected, productivity_factor, overhead_factor
		FROM shock_events WHERE run_id = ? ORDER BY id DESC LIMIT ?`, runID, limit)
	return rows, err
}

// TypeSurvival counts retired agents per type for a run.
func (db *DB) TypeSurvival(runID string) (map[string]int, error) {
	var rows []struct {
		Type    string `db:"agent_type" json:"agent_type"`
		Retired int    `db:"retired" json:"retired"`
	}
	err := db.conn.Select(&rows, `SELECT agent_type, COUNT(*) AS retired
		FROM agent_performance WHERE run_id = ? AND retired_round >= 0
		GROUP BY agent_type`, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Retired
	}
	return out, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveLastRun records the most recently saved run and its round count.
func (db *DB) SaveLastRun(res *engine.Results) error {
	if err := db.SaveMeta("last_run", res.RunID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_run_rounds", strconv.Itoa(len(res.Rounds))); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}
