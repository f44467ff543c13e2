// Package sqlite provides a store.Store backed by a SQLite database
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	ctrl "sigs.k8s.io/controller-runtime"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/store"
)

var log = ctrl.Log.WithName("store").WithName("sqlite")

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS workflow_runs (
	run_id     TEXT PRIMARY KEY,
	workflow   TEXT NOT NULL,
	mode       TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT,
	state      TEXT NOT NULL,
	result     TEXT,
	message    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow ON workflow_runs(workflow, start_time);
CREATE TABLE IF NOT EXISTS task_runs (
	run_id     TEXT NOT NULL REFERENCES workflow_runs(run_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	node_id    TEXT NOT NULL,
	task_name  TEXT NOT NULL,
	env        TEXT NOT NULL DEFAULT '',
	upstream   TEXT NOT NULL DEFAULT '[]',
	state      TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT,
	attempts   INTEGER NOT NULL DEFAULT 0,
	input      TEXT,
	output     TEXT,
	message    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, node_id)
);`

// Store persists workflow runs in SQLite
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at cfg.ConnectionString.
// ":memory:" gives a private in-memory database.
func New(cfg store.StoreConfig) (*Store, error) {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// Each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", dsn, err)
	}
	log.V(1).Info("Opened run store", "path", dsn)
	return &Store{db: db}, nil
}

func (s *Store) SaveRun(ctx context.Context, run *store.WorkflowRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO workflow_runs (run_id, workflow, mode, start_time, end_time, state, result, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	workflow = excluded.workflow,
	mode = excluded.mode,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	state = excluded.state,
	result = excluded.result,
	message = excluded.message`,
		run.RunID, run.Workflow, run.Mode, formatTime(run.StartTime), formatTimePtr(run.EndTime),
		string(run.State), nullableJSON(run.Result), run.Message)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}

	for i := range run.TaskRuns {
		if err := saveTaskRun(ctx, tx, run.RunID, &run.TaskRuns[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetRun(ctx context.Context, runID string) (*store.WorkflowRun, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT run_id, workflow, mode, start_time, end_time, state, result, message
FROM workflow_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if run.TaskRuns, err = s.taskRuns(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, workflow string, opts store.ListOptions) ([]*store.WorkflowRun, error) {
	query := `
SELECT run_id, workflow, mode, start_time, end_time, state, result, message
FROM workflow_runs
WHERE (? = '' OR workflow = ?) AND (? = '' OR state = ?)
ORDER BY start_time DESC, run_id ASC
LIMIT ? OFFSET ?`
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, workflow, workflow, string(opts.State), string(opts.State), limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*store.WorkflowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range out {
		if run.TaskRuns, err = s.taskRuns(ctx, run.RunID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) SaveTaskRun(ctx context.Context, runID string, task *store.TaskRun) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM workflow_runs WHERE run_id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return saveTaskRun(ctx, s.db, runID, task)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveTaskRun(ctx context.Context, db execer, runID string, task *store.TaskRun) error {
	upstream, err := json.Marshal(task.Upstream)
	if err != nil {
		return err
	}
	if task.Upstream == nil {
		upstream = []byte("[]")
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO task_runs (run_id, seq, node_id, task_name, env, upstream, state, start_time, end_time, attempts, input, output, message)
VALUES (?, (SELECT COUNT(*) FROM task_runs WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, node_id) DO UPDATE SET
	task_name = excluded.task_name,
	env = excluded.env,
	upstream = excluded.upstream,
	state = excluded.state,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	attempts = excluded.attempts,
	input = excluded.input,
	output = excluded.output,
	message = excluded.message`,
		runID, runID, task.NodeID, task.TaskName, task.Env, string(upstream), string(task.State),
		formatTime(task.StartTime), formatTimePtr(task.EndTime), task.Attempts,
		nullableJSON(task.Input), nullableJSON(task.Output), task.Message)
	if err != nil {
		return fmt.Errorf("save task run %s/%s: %w", runID, task.NodeID, err)
	}
	return nil
}

func (s *Store) taskRuns(ctx context.Context, runID string) ([]store.TaskRun, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT node_id, task_name, env, upstream, state, start_time, end_time, attempts, input, output, message
FROM task_runs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list task runs of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []store.TaskRun
	for rows.Next() {
		var (
			task               store.TaskRun
			upstream, state    string
			start              string
			end, input, output sql.NullString
		)
		if err := rows.Scan(&task.NodeID, &task.TaskName, &task.Env, &upstream, &state, &start, &end,
			&task.Attempts, &input, &output, &task.Message); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(upstream), &task.Upstream); err != nil {
			return nil, fmt.Errorf("decode upstream of %s/%s: %w", runID, task.NodeID, err)
		}
		if len(task.Upstream) == 0 {
			task.Upstream = nil
		}
		task.State = actorsv1.TaskState(state)
		if task.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if task.EndTime, err = parseTimePtr(end); err != nil {
			return nil, err
		}
		task.Input = rawJSON(input)
		task.Output = rawJSON(output)
		out = append(out, task)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*store.WorkflowRun, error) {
	var (
		run         store.WorkflowRun
		start       string
		state       string
		end, result sql.NullString
	)
	if err := row.Scan(&run.RunID, &run.Workflow, &run.Mode, &start, &end, &state, &result, &run.Message); err != nil {
		return nil, err
	}
	var err error
	if run.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if run.EndTime, err = parseTimePtr(end); err != nil {
		return nil, err
	}
	run.State = actorsv1.TaskState(state)
	run.Result = rawJSON(result)
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func rawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}
