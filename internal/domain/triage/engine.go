// Package triage implements the triage decision engine: given an item
// snapshot and a repository policy it decides whether to skip, comment,
// label, or label and comment.
//
// Everything in this package is a pure function of its inputs. The engine
// never performs I/O, holds no state between invocations and can be called
// concurrently for any number of items. Idempotence across repeated runs
// comes from re-deriving "already labeled" and "already commented" from the
// snapshot on every call.
package triage

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// Engine composes the guideline evaluator, human-involvement detector,
// duplicate suppressor and label selector into a single decision.
type Engine struct {
	evaluator GuidelineEvaluator
}

// NewEngine creates an Engine. A nil evaluator selects RuleEvaluator.
func NewEngine(evaluator GuidelineEvaluator) *Engine {
	if evaluator == nil {
		evaluator = RuleEvaluator{}
	}
	return &Engine{evaluator: evaluator}
}

// Decide runs the state machine for one item:
//
//	Start -> Filtered -> Skip (closed | already labeled)
//	      -> HumanCheck -> Skip (human involved)
//	      -> Evaluate -> SomeMissing -> Comment | Skip (duplicate)
//	                  -> AllSatisfied -> SelectLabel -> Label [+ Comment] | Skip (no confident label)
//
// It returns an error wrapping model.ErrConfigurationMissing when the policy
// has no taxonomy or sections, and model.ErrPreconditionViolation when the
// selector yields a label outside the taxonomy. No decision accompanies an error.
// A nil selector selects RuleSelector.
func (e *Engine) Decide(item model.Item, policy model.Policy, selector LabelSelector) (model.Decision, error) {
	if err := policy.Validate(); err != nil {
		return model.Decision{}, err
	}
	if selector == nil {
		selector = RuleSelector{}
	}

	switch item.State {
	case model.ItemStateOpen:
	case model.ItemStateClosed:
		return model.Skip(model.SkipClosed), nil
	default:
		return model.Skip(fmt.Sprintf("unknown item state %q", item.State)), nil
	}

	for _, l := range item.Labels {
		if policy.Taxonomy.Contains(l) {
			return model.Skip(model.SkipAlreadyLabeled), nil
		}
	}

	marker := policy.Marker()
	detector := HumanInvolvementDetector{Marker: marker, IgnoreAuthors: policy.IgnoreAuthors}
	if detector.Involved(item) {
		return model.Skip(model.SkipHumanInvolved), nil
	}

	sections := withTemplatePlaceholders(policy.Sections, policy.Template)
	verdict := e.evaluator.Evaluate(item, sections)
	prior := botComments(item.Comments, marker)
	suppressor := DuplicateSuppressor{Sections: sections}

	if outstanding := verdict.OutstandingIDs(); len(outstanding) > 0 {
		text, err := renderOutstanding(item, marker, verdict)
		if err != nil {
			return withVerdict(model.Skip(err.Error()), verdict), nil
		}
		if !suppressor.ShouldComment(text, prior, outstanding) {
			return withVerdict(model.Skip(model.SkipDuplicate), verdict), nil
		}
		d := model.CommentOnly(text)
		d.Reason = "outstanding: " + strings.Join(outstanding, ", ")
		return withVerdict(d, verdict), nil
	}

	label, ok := selector.Select(item, policy.Taxonomy)
	if !ok {
		return withVerdict(model.Skip(model.SkipNoConfidentFit), verdict), nil
	}
	category, member := policy.Taxonomy.Find(label)
	if !member {
		return model.Decision{}, fmt.Errorf("selected label %q for %s#%d: %w",
			label, item.RepoFullName(), item.Number, model.ErrPreconditionViolation)
	}

	d := model.LabelOnly(category.Label)
	if text, err := renderAck(item, marker, category); err == nil && suppressor.ShouldComment(text, prior, nil) {
		d = model.LabelAndComment(category.Label, text)
	}
	d.Reason = "matched category " + category.Label
	return withVerdict(d, verdict), nil
}

// botComments returns the comments carrying the bot marker, in order.
func botComments(comments []model.Comment, marker string) []model.Comment {
	var out []model.Comment
	for _, c := range comments {
		if c.IsBotAuthored(marker) {
			out = append(out, c)
		}
	}
	return out
}

func withVerdict(d model.Decision, v model.Verdict) model.Decision {
	d.Verdict = &v
	return d
}
