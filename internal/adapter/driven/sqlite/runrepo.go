package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// defaultListLimit caps ListRecent when no limit is given.
const defaultListLimit = 50

// RunRepo is the SQLite implementation of the RunStore port interface. It is
// an append-only audit log; nothing in the triage path reads it back.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Record appends one triage run.
func (r *RunRepo) Record(ctx context.Context, run model.TriageRun) error {
	const query = `
		INSERT INTO triage_runs (
			id, repo, number, decision, reason, label, comment, outstanding,
			label_applied, comment_posted, dry_run, error, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	outstanding := run.Outstanding
	if outstanding == nil {
		outstanding = []string{}
	}
	outstandingJSON, err := json.Marshal(outstanding)
	if err != nil {
		return fmt.Errorf("marshal outstanding sections: %w", err)
	}

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		run.ID,
		run.Repo,
		run.Number,
		string(run.Decision),
		run.Reason,
		run.Label,
		run.Comment,
		string(outstandingJSON),
		run.LabelApplied,
		run.CommentPosted,
		run.DryRun,
		run.Error,
		startedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record triage run %s for %s#%d: %w", run.ID, run.Repo, run.Number, err)
	}

	return nil
}

// ListRecent returns the most recent runs, newest first. An empty repo lists
// runs across all repositories. A non-positive limit uses a default.
func (r *RunRepo) ListRecent(ctx context.Context, repo string, limit int) ([]model.TriageRun, error) {
	const query = `
		SELECT id, repo, number, decision, reason, label, comment, outstanding,
		       label_applied, comment_posted, dry_run, error, started_at, duration_ms
		FROM triage_runs
		WHERE (? = '' OR repo = ?)
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`

	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, repo, repo, limit)
	if err != nil {
		return nil, fmt.Errorf("list triage runs: %w", err)
	}
	defer rows.Close()

	runs := []model.TriageRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan triage run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triage runs: %w", err)
	}

	return runs, nil
}

// Prune deletes runs started before cutoff and reports how many were removed.
func (r *RunRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM triage_runs WHERE started_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune triage runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.TriageRun, error) {
	var (
		run             model.TriageRun
		decision        string
		outstandingJSON string
		startedAt       string
		durationMS      int64
	)

	err := s.Scan(
		&run.ID,
		&run.Repo,
		&run.Number,
		&decision,
		&run.Reason,
		&run.Label,
		&run.Comment,
		&outstandingJSON,
		&run.LabelApplied,
		&run.CommentPosted,
		&run.DryRun,
		&run.Error,
		&startedAt,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	run.Decision = model.DecisionKind(decision)
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if err := json.Unmarshal([]byte(outstandingJSON), &run.Outstanding); err != nil {
		return nil, fmt.Errorf("unmarshal outstanding sections: %w", err)
	}

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	return &run, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
