// Package ledger keeps the history of export runs in a SQLite file.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/liftcab/pkg/export"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	report     TEXT NOT NULL,
	export_dir TEXT NOT NULL,
	started    INTEGER NOT NULL,
	finished   INTEGER,
	ok         INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	skipped    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS node_results (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	part_group      TEXT NOT NULL,
	node            INTEGER NOT NULL,
	name            TEXT NOT NULL,
	designation     TEXT NOT NULL,
	new_designation TEXT NOT NULL,
	new_full_name   TEXT NOT NULL,
	stage           TEXT NOT NULL,
	skipped         INTEGER NOT NULL,
	error           TEXT
);
CREATE INDEX IF NOT EXISTS node_results_run ON node_results(run_id);
`

// Run is one row of the run history.
type Run struct {
	ID        string
	Report    string
	ExportDir string
	Started   time.Time
	Finished  time.Time // zero while the run is unfinished or was aborted
	OK        int
	Failed    int
	Skipped   int
}

// NodeRow is one recorded node result.
type NodeRow struct {
	Group          string
	Node           int
	Name           string
	Designation    string
	NewDesignation string
	NewFullName    string
	Stage          export.Stage
	Skipped        bool
	Err            string
}

// Ledger implements export.Recorder on a SQLite database.
type Ledger struct {
	db *sql.DB
}

var _ export.Recorder = (*Ledger)(nil)

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// BeginRun inserts the run row.
func (l *Ledger) BeginRun(run export.RunInfo) error {
	_, err := l.db.Exec(
		"INSERT INTO runs (id, report, export_dir, started) VALUES (?, ?, ?, ?)",
		run.ID, run.ReportPath, run.ExportDir, run.Started.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// RecordPart stores every node result of a part in one transaction.
func (l *Ledger) RecordPart(runID string, p export.PartOutcome) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO node_results
		(run_id, part_group, node, name, designation, new_designation, new_full_name, stage, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, n := range p.Nodes {
		var msg sql.NullString
		if n.Err != nil {
			msg = sql.NullString{String: n.Err.Error(), Valid: true}
		}
		_, err := stmt.Exec(runID, p.Group, int(n.Node), n.Name, n.Designation,
			n.NewDesignation, n.NewFullName, string(n.Stage), n.Skipped, msg)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.Name, err)
		}
	}
	return tx.Commit()
}

// EndRun stores the finish time and the node tallies.
func (l *Ledger) EndRun(runID string, s *export.Summary) error {
	ok, failed, skipped := s.Counts()
	res, err := l.db.Exec(
		"UPDATE runs SET finished = ?, ok = ?, failed = ?, skipped = ? WHERE id = ?",
		s.Finished.UnixNano(), ok, failed, skipped, runID,
	)
	if err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end run: %w: %s", ErrNoRun, runID)
	}
	return nil
}

// Runs lists the most recent runs, newest first. limit <= 0 lists all.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.Query(`SELECT id, report, export_dir, started, finished, ok, failed, skipped
		FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Report, &r.ExportDir, &started, &finished, &r.OK, &r.Failed, &r.Skipped); err != nil {
			return nil, err
		}
		r.Started = time.Unix(0, started)
		if finished.Valid {
			r.Finished = time.Unix(0, finished.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ErrNoRun means the run id is unknown.
var ErrNoRun = errors.New("no such run")

// Nodes returns the node results of a run in recorded order.
func (l *Ledger) Nodes(runID string) ([]NodeRow, error) {
	var exists int
	err := l.db.QueryRow("SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := l.db.Query(`SELECT part_group, node, name, designation, new_designation, new_full_name, stage, skipped, error
		FROM node_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []NodeRow
	for rows.Next() {
		var (
			n     NodeRow
			stage string
			msg   sql.NullString
		)
		if err := rows.Scan(&n.Group, &n.Node, &n.Name, &n.Designation, &n.NewDesignation,
			&n.NewFullName, &stage, &n.Skipped, &msg); err != nil {
			return nil, err
		}
		n.Stage = export.Stage(stage)
		n.Err = msg.String
		out = append(out, n)
	}
	return out, rows.Err()
}
