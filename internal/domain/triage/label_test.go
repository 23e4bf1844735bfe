package triage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/triage"
)

func prWithFiles(title string, paths ...string) model.Item {
	item := model.Item{Kind: model.ItemKindPullRequest, Title: title, State: model.ItemStateOpen}
	for _, p := range paths {
		item.Files = append(item.Files, model.FileChange{Path: p})
	}
	return item
}

func TestRuleSelector_MostSpecificPathWins(t *testing.T) {
	taxonomy := model.Taxonomy{
		{Label: "infrastructure", Paths: []string{".github/"}},
		{Label: "ci", Paths: []string{".github/workflows/"}},
	}

	label, ok := triage.RuleSelector{}.Select(prWithFiles("Bump action versions", ".github/workflows/ci.yml"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "ci", label)

	label, ok = triage.RuleSelector{}.Select(prWithFiles("Update codeowners", ".github/CODEOWNERS"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "infrastructure", label)
}

func TestRuleSelector_EveryFileMustBeCovered(t *testing.T) {
	taxonomy := model.Taxonomy{{Label: "documentation", Paths: []string{"docs/", "*.md"}}}

	_, ok := triage.RuleSelector{}.Select(prWithFiles("Tweak", "docs/intro.md", "main.go"), taxonomy)
	assert.False(t, ok)

	label, ok := triage.RuleSelector{}.Select(prWithFiles("Tweak", "docs/intro.md", "README.md"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "documentation", label)
}

func TestRuleSelector_TieIsNoMatch(t *testing.T) {
	taxonomy := model.Taxonomy{
		{Label: "frontend", Paths: []string{"web/"}},
		{Label: "design", Paths: []string{"web/"}},
	}

	_, ok := triage.RuleSelector{}.Select(prWithFiles("Restyle", "web/app.css"), taxonomy)
	assert.False(t, ok)
}

func TestRuleSelector_PathOutranksKeyword(t *testing.T) {
	taxonomy := model.Taxonomy{
		{Label: "bug", Keywords: []string{"fix"}},
		{Label: "documentation", Paths: []string{"docs/"}},
	}

	label, ok := triage.RuleSelector{}.Select(prWithFiles("Fix typo", "docs/guide.md"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "documentation", label)
}

func TestRuleSelector_IssueKeywords(t *testing.T) {
	taxonomy := model.Taxonomy{
		{Label: "bug", Keywords: []string{"crash"}},
		{Label: "performance", Keywords: []string{"slow", "memory leak"}},
	}
	issue := model.Item{
		Kind:  model.ItemKindIssue,
		Title: "Server degrades over time",
		Body:  "## What happened\n\nThere is a memory leak after a few hours.\n",
	}

	label, ok := triage.RuleSelector{}.Select(issue, taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "performance", label)

	_, ok = triage.RuleSelector{}.Select(model.Item{Kind: model.ItemKindIssue, Title: "crashing"}, taxonomy)
	assert.False(t, ok, "keywords match whole words only")
}

func TestHintSelector(t *testing.T) {
	taxonomy := model.Taxonomy{{Label: "bug"}, {Label: "enhancement"}}
	item := model.Item{}

	label, ok := triage.HintSelector{Hint: model.LabelHint{Label: "Bug", Confidence: 0.9}, MinConfidence: 0.7}.Select(item, taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "bug", label)

	_, ok = triage.HintSelector{Hint: model.LabelHint{Label: "bug", Confidence: 0.5}, MinConfidence: 0.7}.Select(item, taxonomy)
	assert.False(t, ok, "below the confidence floor")

	_, ok = triage.HintSelector{Hint: model.LabelHint{Label: "question", Confidence: 1}, MinConfidence: 0.7}.Select(item, taxonomy)
	assert.False(t, ok, "not a taxonomy member")
}

func TestFirstMatch(t *testing.T) {
	taxonomy := model.Taxonomy{
		{Label: "documentation", Paths: []string{"docs/"}},
		{Label: "bug"},
	}
	hint := triage.HintSelector{Hint: model.LabelHint{Label: "bug", Confidence: 1}}
	selector := triage.FirstMatch{triage.RuleSelector{}, hint}

	label, ok := selector.Select(prWithFiles("Docs", "docs/a.md"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "documentation", label)

	label, ok = selector.Select(prWithFiles("Fix", "main.go"), taxonomy)
	assert.True(t, ok)
	assert.Equal(t, "bug", label)
}
