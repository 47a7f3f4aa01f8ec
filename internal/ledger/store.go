package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voicecohort/internal/config"
	"voicecohort/internal/services"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.Ledger.Path)
}

// OpenPath initializes or connects to the ledger database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "ledger path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, output_dir, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.Dataset,
		nullableString(run.OutputDir),
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordDecisions appends decisions to a run in a single transaction.
func (s *Store) RecordDecisions(ctx context.Context, runID string, decisions []Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decisions tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM decisions WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("read decision sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decisions (run_id, seq, person_id, stage, result, reason, related_id) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare decision insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		next++
		if _, err := stmt.ExecContext(ctx, runID, next, d.PersonID, d.Stage, d.Result, nullableString(d.Reason), nullableString(d.RelatedID)); err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decisions: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, submissions = ?, filtered = ?, positives = ?,
             negatives = ?, valid_positives = ?, controls = ?, unmatched = ?,
             balance_json = ?, error_message = ?
         WHERE id = ?`,
		run.Status,
		formatTime(run.FinishedAt),
		run.Submissions,
		run.Filtered,
		run.Positives,
		run.Negatives,
		run.ValidPositives,
		run.Controls,
		run.Unmatched,
		nullableString(run.BalanceJSON),
		nullableString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "ledger", "finish run", fmt.Sprintf("run %s not found", run.ID), nil)
	}
	return nil
}

// GetRun fetches a run by id. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindRun resolves a run id or unique id prefix. The prefix is matched
// literally.
func (s *Store) FindRun(ctx context.Context, prefix string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' ESCAPE '\' ORDER BY started_at DESC LIMIT 2`, likeEscaper.Replace(prefix))
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(runs) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "ledger", "find run", fmt.Sprintf("no run matches %q", prefix), nil)
	case 1:
		return runs[0], nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "find run", fmt.Sprintf("run prefix %q is ambiguous", prefix), nil)
	}
}

// Runs lists the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Decisions returns the decisions of a run in the order they were made.
func (s *Store) Decisions(ctx context.Context, runID string) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, person_id, stage, result, reason, related_id FROM decisions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var (
			d       Decision
			reason  sql.NullString
			related sql.NullString
		)
		if err := rows.Scan(&d.Seq, &d.PersonID, &d.Stage, &d.Result, &reason, &related); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Reason = reason.String
		d.RelatedID = related.String
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}
