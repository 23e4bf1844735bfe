package triage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/triage"
)

func statusOf(t *testing.T, item model.Item, s model.GuidelineSection) model.SectionStatus {
	t.Helper()
	v := triage.RuleEvaluator{}.Evaluate(item, []model.GuidelineSection{s})
	if len(v.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(v.Results))
	}
	return v.Results[0].Status
}

func TestRuleEvaluator_Heading(t *testing.T) {
	section := model.GuidelineSection{
		ID:           "description",
		Kind:         model.SectionKindHeading,
		Heading:      "Description",
		Placeholders: []string{"Describe your change"},
	}

	tests := []struct {
		name string
		body string
		want model.SectionStatus
	}{
		{name: "filled", body: "## Description\n\nAdds retries to the uploader.\n", want: model.SectionSatisfied},
		{name: "absent", body: "Adds retries to the uploader.\n", want: model.SectionMissing},
		{name: "placeholder only", body: "## Description\n\nDescribe your change\n", want: model.SectionMissing},
		{name: "placeholder in another case", body: "## Description\n\nDESCRIBE YOUR CHANGE\n", want: model.SectionMissing},
		{name: "placeholder plus content", body: "## Description\n\nDescribe your change\n\nAdds retries.\n", want: model.SectionSatisfied},
		{name: "html comment only", body: "## Description\n\n<!-- What does this change? -->\n\n## Testing\n\nRan it.\n", want: model.SectionMissing},
		{name: "decorated heading", body: "### 📝 Description:\n\nAdds retries.\n", want: model.SectionSatisfied},
		{name: "content in sub-heading", body: "## Description\n\n### Details\n\nAdds retries.\n", want: model.SectionSatisfied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.Item{Kind: model.ItemKindPullRequest, Body: tt.body}
			assert.Equal(t, tt.want, statusOf(t, item, section))
		})
	}
}

func TestRuleEvaluator_Checkbox(t *testing.T) {
	section := model.GuidelineSection{ID: "type", Kind: model.SectionKindCheckbox, Heading: "Type of change"}

	checked := model.Item{Body: "## Type of change\n\n- [ ] Bug fix\n- [x] New feature\n"}
	unchecked := model.Item{Body: "## Type of change\n\n- [ ] Bug fix\n- [ ] New feature\n"}
	absent := model.Item{Body: "## Summary\n\nText.\n"}

	assert.Equal(t, model.SectionSatisfied, statusOf(t, checked, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, unchecked, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, absent, section))
}

func TestRuleEvaluator_StatusCheckRollup(t *testing.T) {
	section := model.GuidelineSection{ID: "ci", Kind: model.SectionKindStatusCheck}

	tests := []struct {
		name string
		ci   *model.CIRollup
		want model.SectionStatus
	}{
		{name: "not fetched", ci: nil, want: model.SectionUnknown},
		{name: "success", ci: &model.CIRollup{State: model.CIStateSuccess}, want: model.SectionSatisfied},
		{name: "pending", ci: &model.CIRollup{State: model.CIStatePending}, want: model.SectionUnknown},
		{name: "no checks", ci: &model.CIRollup{State: model.CIStateNone}, want: model.SectionUnknown},
		{name: "failure", ci: &model.CIRollup{State: model.CIStateFailure}, want: model.SectionMissing},
		{name: "error", ci: &model.CIRollup{State: model.CIStateError}, want: model.SectionMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.Item{Kind: model.ItemKindPullRequest, CI: tt.ci}
			assert.Equal(t, tt.want, statusOf(t, item, section))
		})
	}
}

func TestRuleEvaluator_NamedStatusCheck(t *testing.T) {
	section := model.GuidelineSection{ID: "build", Kind: model.SectionKindStatusCheck, Check: "build*"}
	ci := func(state string) *model.CIRollup {
		return &model.CIRollup{
			State: model.CIStateFailure,
			Checks: []model.StatusCheck{
				{Name: "lint", State: "failure"},
				{Name: "Build (linux)", State: state},
			},
		}
	}

	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{CI: ci("success")}, section))
	assert.Equal(t, model.SectionUnknown, statusOf(t, model.Item{CI: ci("in_progress")}, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, model.Item{CI: ci("failure")}, section))

	notReported := &model.CIRollup{State: model.CIStateSuccess, Checks: []model.StatusCheck{{Name: "lint", State: "success"}}}
	assert.Equal(t, model.SectionUnknown, statusOf(t, model.Item{CI: notReported}, section))
}

func TestRuleEvaluator_LinkedIssue(t *testing.T) {
	section := model.GuidelineSection{ID: "issue", Kind: model.SectionKindLinkedIssue}

	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{Body: "Fixes #12"}, section))
	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{Body: "See octo/widgets#7."}, section))
	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{Body: "Closes https://github.com/octo/widgets/issues/3"}, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, model.Item{Body: "No reference here."}, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, model.Item{Body: "Fixes <!-- #12 -->"}, section))
}

func TestRuleEvaluator_Files(t *testing.T) {
	section := model.GuidelineSection{
		ID:           "changelog",
		Kind:         model.SectionKindFiles,
		Paths:        []string{"internal/"},
		RequirePaths: []string{"CHANGELOG.md"},
	}
	files := func(paths ...string) []model.FileChange {
		out := []model.FileChange{}
		for _, p := range paths {
			out = append(out, model.FileChange{Path: p})
		}
		return out
	}

	assert.Equal(t, model.SectionUnknown, statusOf(t, model.Item{}, section))
	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{Files: files("README.md")}, section))
	assert.Equal(t, model.SectionMissing, statusOf(t, model.Item{Files: files("internal/server/server.go")}, section))
	assert.Equal(t, model.SectionSatisfied, statusOf(t, model.Item{Files: files("internal/server/server.go", "CHANGELOG.md")}, section))
}

func TestRuleEvaluator_SkipsSectionsForOtherKinds(t *testing.T) {
	sections := []model.GuidelineSection{
		{ID: "ci", Kind: model.SectionKindStatusCheck, AppliesTo: []model.ItemKind{model.ItemKindPullRequest}},
		{ID: "issue", Kind: model.SectionKindLinkedIssue},
	}

	v := triage.RuleEvaluator{}.Evaluate(model.Item{Kind: model.ItemKindIssue, Body: "Relates to #3"}, sections)

	assert.Equal(t, []string{"issue"}, v.Satisfied())
	assert.Empty(t, v.Unknown())
	assert.True(t, v.AllSatisfied())
}
