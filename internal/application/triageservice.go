// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
	"github.com/ericfisherdev/triagebot/internal/domain/triage"
)

// TriageService orchestrates one triage cycle per item: load the policy,
// fetch a fresh snapshot, ask the engine for a decision, execute it and
// record the run.
type TriageService struct {
	fetcher     driven.ItemFetcher
	policies    driven.PolicySource
	classifier  driven.LabelClassifier // Optional.
	runs        driven.RunStore        // Optional.
	executor    *Executor
	engine      *triage.Engine
	repos       []string
	dryRun      bool
	maxParallel int
	retention   time.Duration
}

// NewTriageService creates a new TriageService. classifier and runs may be nil.
func NewTriageService(
	fetcher driven.ItemFetcher,
	writer driven.ActionWriter,
	policies driven.PolicySource,
	classifier driven.LabelClassifier,
	runs driven.RunStore,
	repos []string,
	dryRun bool,
	maxParallel int,
) *TriageService {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &TriageService{
		fetcher:     fetcher,
		policies:    policies,
		classifier:  classifier,
		runs:        runs,
		executor:    NewExecutor(writer),
		engine:      triage.NewEngine(nil),
		repos:       repos,
		dryRun:      dryRun,
		maxParallel: maxParallel,
	}
}

// SetAuditRetention makes every sweep delete audit records older than d.
// Zero keeps records forever.
func (s *TriageService) SetAuditRetention(d time.Duration) {
	s.retention = d
}

// Policy returns the policy in effect for repo.
func (s *TriageService) Policy(repo string) (*model.Policy, error) {
	return s.policies.Load(repo)
}

// TriageItem runs one decision cycle for a single item. When dryRun is set,
// the service-wide dry-run flag is set, or the policy requires manual
// approval, the decision is recorded but not executed.
//
// Configuration and fetch errors are returned unmodified (wrapped with
// context). Individual action failures do not fail the call; they are
// reported in the run's Actions.
func (s *TriageService) TriageItem(ctx context.Context, repo string, number int, dryRun bool) (*model.TriageRun, error) {
	start := time.Now()
	run := &model.TriageRun{
		ID:        uuid.NewString(),
		Repo:      repo,
		Number:    number,
		DryRun:    dryRun || s.dryRun,
		StartedAt: start.UTC(),
	}

	err := s.triage(ctx, run)
	run.Duration = time.Since(start)
	if err != nil {
		run.Error = err.Error()
	}
	s.record(ctx, *run)

	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *TriageService) triage(ctx context.Context, run *model.TriageRun) error {
	policy, err := s.policies.Load(run.Repo)
	if err != nil {
		return err
	}
	if policy.Approval == model.ApprovalManual {
		run.DryRun = true
	}

	item, err := s.fetcher.FetchItem(ctx, run.Repo, run.Number)
	if err != nil {
		return fmt.Errorf("fetching %s#%d: %w", run.Repo, run.Number, err)
	}

	decision, err := s.engine.Decide(*item, *policy, s.selector(ctx, *item, *policy))
	if err != nil {
		return err
	}

	run.Decision = decision.Kind
	run.Reason = decision.Reason
	run.Label = decision.Label
	run.Comment = decision.Comment
	if decision.Verdict != nil {
		run.Outstanding = decision.Verdict.OutstandingIDs()
	}

	slog.Info("triage decision",
		"repo", run.Repo,
		"number", run.Number,
		"decision", string(decision.Kind),
		"reason", decision.Reason,
		"label", decision.Label,
		"dry_run", run.DryRun,
	)

	if run.DryRun {
		return nil
	}

	results, err := s.executor.Execute(ctx, *item, *policy, decision)
	if err != nil {
		return err
	}
	run.Actions = results
	for _, r := range results {
		switch {
		case r.Action == model.ActionAddLabel && r.Succeeded():
			run.LabelApplied = true
		case r.Action == model.ActionPostComment && r.Succeeded():
			run.CommentPosted = true
		}
	}
	if failed := failedActions(results); len(failed) > 0 {
		run.Error = errors.Join(failed...).Error()
	}
	return nil
}

// selector builds the label selector for one invocation. Rules come first;
// the classifier is only consulted when the rules find nothing and the item
// could still be labeled, so its I/O stays outside the engine.
func (s *TriageService) selector(ctx context.Context, item model.Item, policy model.Policy) triage.LabelSelector {
	rules := triage.RuleSelector{}
	if s.classifier == nil || item.State != model.ItemStateOpen {
		return rules
	}
	if _, ok := rules.Select(item, policy.Taxonomy); ok {
		return rules
	}
	for _, l := range item.Labels {
		if policy.Taxonomy.Contains(l) {
			return rules
		}
	}

	hint, err := s.classifier.Classify(ctx, item, policy)
	if err != nil {
		slog.Warn("label classifier failed", "repo", item.RepoFullName(), "number", item.Number, "error", err)
		return rules
	}
	slog.Debug("label hint",
		"repo", item.RepoFullName(),
		"number", item.Number,
		"label", hint.Label,
		"confidence", hint.Confidence,
	)
	return triage.FirstMatch{rules, triage.HintSelector{Hint: hint, MinConfidence: policy.MinConfidence}}
}

// Sweep triages every open item of every configured repository. Items are
// processed concurrently up to maxParallel. Per-item failures are logged and
// counted; a repository without a policy is skipped entirely.
func (s *TriageService) Sweep(ctx context.Context) error {
	start := time.Now()
	var triaged, failed atomic.Int64

	for _, repo := range s.repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.policies.Load(repo); err != nil {
			slog.Error("repo skipped", "repo", repo, "error", err)
			continue
		}

		numbers, err := s.fetcher.ListOpenItems(ctx, repo)
		if err != nil {
			slog.Error("listing open items failed", "repo", repo, "error", err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.maxParallel)
		for _, number := range numbers {
			g.Go(func() error {
				if _, err := s.TriageItem(gctx, repo, number, false); err != nil {
					slog.Error("triage failed", "repo", repo, "number", number, "error", err)
					failed.Add(1)
					return nil
				}
				triaged.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		slog.Info("repo swept", "repo", repo, "open_items", len(numbers))
	}

	slog.Info("sweep complete",
		"repos", len(s.repos),
		"triaged", triaged.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	s.prune(ctx)
	return nil
}

func (s *TriageService) prune(ctx context.Context) {
	if s.runs == nil || s.retention <= 0 {
		return
	}
	removed, err := s.runs.Prune(ctx, time.Now().Add(-s.retention))
	if err != nil {
		slog.Error("pruning audit log failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("audit log pruned", "removed", removed, "retention", s.retention)
	}
}

// RecentRuns lists audit records for operators.
func (s *TriageService) RecentRuns(ctx context.Context, repo string, limit int) ([]model.TriageRun, error) {
	if s.runs == nil {
		return []model.TriageRun{}, nil
	}
	return s.runs.ListRecent(ctx, repo, limit)
}

// record writes the audit entry. Audit failures never fail a triage run.
func (s *TriageService) record(ctx context.Context, run model.TriageRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("recording triage run failed", "repo", run.Repo, "number", run.Number, "error", err)
	}
}

func failedActions(results []model.ActionResult) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Action, r.Err))
		}
	}
	return errs
}
