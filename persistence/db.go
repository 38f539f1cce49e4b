// Package persistence stores finished runs and their per-tick summaries in SQLite.
package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/contagion/telemetry"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// RunRecord is one completed run.
type RunRecord struct {
	RunKey     string `db:"run_key"`
	RowIndex   int    `db:"row_index"`
	Seed       int64  `db:"seed"`
	Steps      int    `db:"steps"`
	Params     string `db:"params"`
	Infected   int    `db:"final_infected"`
	Vaccinated int    `db:"final_vaccinated"`
	Edges      int    `db:"final_edges"`
	ElapsedMS  int64  `db:"elapsed_ms"`
	FinishedAt int64  `db:"finished_at"` // unix seconds
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
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
		run_key TEXT PRIMARY KEY,
		row_index INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		params TEXT NOT NULL,
		final_infected INTEGER NOT NULL,
		final_vaccinated INTEGER NOT NULL,
		final_edges INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS summaries (
		run_key TEXT NOT NULL,
		step INTEGER NOT NULL,
		patients INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		vaccinated INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		degree_mean REAL NOT NULL,
		interference_mean REAL NOT NULL,
		interference_min REAL NOT NULL,
		interference_max REAL NOT NULL,
		interference_std REAL NOT NULL,
		interference_p10 REAL NOT NULL,
		interference_p50 REAL NOT NULL,
		interference_p90 REAL NOT NULL,
		contagion_mean REAL NOT NULL,
		PRIMARY KEY (run_key, step)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_row ON runs(row_index);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run record.
func (db *DB) SaveRun(r RunRecord) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO runs
		(run_key, row_index, seed, steps, params, final_infected, final_vaccinated,
		 final_edges, elapsed_ms, finished_at)
		VALUES (:run_key, :row_index, :seed, :steps, :params, :final_infected,
		 :final_vaccinated, :final_edges, :elapsed_ms, :finished_at)`, r)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunKey, err)
	}
	return nil
}

// SaveSummaries replaces the stored summaries of a run.
func (db *DB) SaveSummaries(runKey string, sums []telemetry.TickSummary) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM summaries WHERE run_key = ?", runKey); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO summaries
		(run_key, step, patients, infected, vaccinated, edges, degree_mean,
		 interference_mean, interference_min, interference_max, interference_std,
		 interference_p10, interference_p50, interference_p90, contagion_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range sums {
		_, err := stmt.Exec(runKey, s.Step, s.Patients, s.Infected, s.Vaccinated, s.Edges,
			s.DegreeMean, s.InterferenceMean, s.InterferenceMin, s.InterferenceMax,
			s.InterferenceStd, s.InterferenceP10, s.InterferenceP50, s.InterferenceP90,
			s.ContagionMean)
		if err != nil {
			return fmt.Errorf("insert summary %s/%d: %w", runKey, s.Step, err)
		}
	}
	return tx.Commit()
}

// Runs returns every stored run ordered by row index.
func (db *DB) Runs() ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs, `SELECT run_key, row_index, seed, steps, params,
		final_infected, final_vaccinated, final_edges, elapsed_ms, finished_at
		FROM runs ORDER BY row_index, run_key`)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	return runs, nil
}

// Run returns one run by key.
func (db *DB) Run(runKey string) (RunRecord, error) {
	var r RunRecord
	err := db.conn.Get(&r, `SELECT run_key, row_index, seed, steps, params,
		final_infected, final_vaccinated, final_edges, elapsed_ms, finished_at
		FROM runs WHERE run_key = ?`, runKey)
	if err != nil {
		return RunRecord{}, fmt.Errorf("load run %s: %w", runKey, err)
	}
	return r, nil
}

// Summaries returns a run's per-tick summaries in step order.
func (db *DB) Summaries(runKey string) ([]telemetry.TickSummary, error) {
	var sums []telemetry.TickSummary
	err := db.conn.Select(&sums, `SELECT step, patients, infected, vaccinated, edges,
		degree_mean, interference_mean, interference_min, interference_max,
		interference_std, interference_p10, interference_p50, interference_p90,
		contagion_mean
		FROM summaries WHERE run_key = ? ORDER BY step`, runKey)
	if err != nil {
		return nil, fmt.Errorf("load summaries %s: %w", runKey, err)
	}
	return sums, nil
}
