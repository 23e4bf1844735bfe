package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// RunStore defines the driven port for the triage audit log. It is
// write-mostly: runs are listed for operators, never consulted by the policy.
type RunStore interface {
	Record(ctx context.Context, run model.TriageRun) error
	// ListRecent returns the most recent runs, newest first. An empty repo
	// lists runs across all repositories.
	ListRecent(ctx context.Context, repo string, limit int) ([]model.TriageRun, error)
	// Prune deletes runs started before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
