package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Executor carries out a Decision through the ActionWriter port.
type Executor struct {
	writer driven.ActionWriter
}

// NewExecutor creates an Executor writing through w.
func NewExecutor(w driven.ActionWriter) *Executor {
	return &Executor{writer: w}
}

// Execute applies the decision's label and posts its comment. All
// preconditions are checked before the first action; a violation returns an
// error wrapping model.ErrPreconditionViolation and nothing is performed.
// Label and comment are otherwise independent: both are attempted and each
// outcome is reported in the returned results.
func (e *Executor) Execute(ctx context.Context, item model.Item, policy model.Policy, d model.Decision) ([]model.ActionResult, error) {
	if d.IsSkip() {
		return nil, nil
	}
	if err := checkPreconditions(item, policy, d); err != nil {
		return nil, err
	}

	repo := item.RepoFullName()
	var results []model.ActionResult

	if d.HasLabel() {
		err := e.writer.AddLabel(ctx, repo, item.Number, d.Label)
		results = append(results, model.ActionResult{Action: model.ActionAddLabel, Target: d.Label, Err: err})
		if err != nil {
			slog.Error("add label failed", "repo", repo, "number", item.Number, "label", d.Label, "error", err)
		} else {
			slog.Info("label added", "repo", repo, "number", item.Number, "label", d.Label)
		}
	}

	if d.HasComment() {
		err := e.writer.CreateComment(ctx, repo, item.Number, d.Comment)
		results = append(results, model.ActionResult{Action: model.ActionPostComment, Target: excerpt(d.Comment), Err: err})
		if err != nil {
			slog.Error("post comment failed", "repo", repo, "number", item.Number, "error", err)
		} else {
			slog.Info("comment posted", "repo", repo, "number", item.Number)
		}
	}

	return results, nil
}

func checkPreconditions(item model.Item, policy model.Policy, d model.Decision) error {
	if item.State != model.ItemStateOpen {
		return fmt.Errorf("%s#%d is %s: %w", item.RepoFullName(), item.Number, item.State, model.ErrPreconditionViolation)
	}
	if d.HasLabel() && !policy.Taxonomy.Contains(d.Label) {
		return fmt.Errorf("label %q is not an allowed label: %w", d.Label, model.ErrPreconditionViolation)
	}
	if d.HasComment() && !strings.Contains(d.Comment, policy.Marker()) {
		return fmt.Errorf("comment lacks the bot marker: %w", model.ErrPreconditionViolation)
	}
	return nil
}

// excerpt shortens a comment body for logs and audit records.
func excerpt(s string) string {
	const maxLen = 80
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
