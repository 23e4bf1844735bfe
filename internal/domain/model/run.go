package model

import "time"

// ActionKind names an executed side effect.
type ActionKind string

const (
	ActionAddLabel    ActionKind = "add_label"
	ActionPostComment ActionKind = "post_comment"
)

// ActionResult reports the outcome of one executed action. Label and comment
// are executed independently; each is reported on its own.
type ActionResult struct {
	Action ActionKind
	Target string // Label name or comment excerpt.
	Err    error
}

// Succeeded reports whether the action completed without error.
func (r ActionResult) Succeeded() bool {
	return r.Err == nil
}

// TriageRun is the audit record of one triage invocation. Runs are written
// for operators; the triage policy never reads them back.
type TriageRun struct {
	ID            string
	Repo          string
	Number        int
	Decision      DecisionKind
	Reason        string
	Label         string
	Comment       string
	Outstanding   []string
	LabelApplied  bool
	CommentPosted bool
	DryRun        bool
	Error         string
	StartedAt     time.Time
	Duration      time.Duration

	// Transient fields, not persisted.
	Actions []ActionResult
}
