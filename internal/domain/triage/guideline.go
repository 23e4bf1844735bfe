package triage

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// issueRefPattern matches issue references: #123, owner/repo#123 and issue URLs.
var issueRefPattern = regexp.MustCompile(`(?i)(?:^|[^\w&])(?:[\w.-]+/[\w.-]+)?#\d+\b|https?://github\.com/[\w.-]+/[\w.-]+/issues/\d+`)

// GuidelineEvaluator judges an item snapshot against guideline sections.
// Implementations must be pure: the same snapshot and sections always yield
// the same verdict.
type GuidelineEvaluator interface {
	Evaluate(item model.Item, sections []model.GuidelineSection) model.Verdict
}

// RuleEvaluator is the built-in GuidelineEvaluator. It reads the body's
// Markdown structure, the changed files and the CI rollup.
type RuleEvaluator struct{}

// Evaluate returns one result per section applicable to the item's kind,
// in section order.
func (RuleEvaluator) Evaluate(item model.Item, sections []model.GuidelineSection) model.Verdict {
	body := parseBody(item.Body)
	plain := plainText(item.Body)

	results := make([]model.SectionResult, 0, len(sections))
	for _, s := range sections {
		if !s.AppliesToKind(item.Kind) {
			continue
		}
		status, reason := evaluateSection(item, s, body, plain)
		results = append(results, model.SectionResult{Section: s, Status: status, Reason: reason})
	}
	return model.Verdict{Results: results}
}

func evaluateSection(item model.Item, s model.GuidelineSection, body parsedBody, plain string) (model.SectionStatus, string) {
	switch s.Kind {
	case model.SectionKindHeading:
		return evaluateHeading(s, body)
	case model.SectionKindCheckbox:
		return evaluateCheckbox(s, body)
	case model.SectionKindStatusCheck:
		return evaluateStatusCheck(s, item.CI)
	case model.SectionKindLinkedIssue:
		if issueRefPattern.MatchString(plain) {
			return model.SectionSatisfied, "body references an issue"
		}
		return model.SectionMissing, "body does not reference an issue"
	case model.SectionKindFiles:
		return evaluateFiles(s, item)
	default:
		return model.SectionUnknown, fmt.Sprintf("unsupported section kind %q", s.Kind)
	}
}

func evaluateHeading(s model.GuidelineSection, body parsedBody) (model.SectionStatus, string) {
	sec, ok := body.find(s.Heading)
	if !ok {
		return model.SectionMissing, fmt.Sprintf("no %q section", s.Heading)
	}
	if !isFilled(sec.Text, s.Placeholders) {
		return model.SectionMissing, fmt.Sprintf("%q section is empty", s.Heading)
	}
	return model.SectionSatisfied, fmt.Sprintf("%q section is filled in", s.Heading)
}

func evaluateCheckbox(s model.GuidelineSection, body parsedBody) (model.SectionStatus, string) {
	sec, ok := body.find(s.Heading)
	if !ok {
		return model.SectionMissing, fmt.Sprintf("no %q section", s.Heading)
	}
	if len(sec.Checked) == 0 {
		return model.SectionMissing, fmt.Sprintf("no option checked under %q", s.Heading)
	}
	return model.SectionSatisfied, fmt.Sprintf("checked: %s", strings.Join(sec.Checked, ", "))
}

func evaluateStatusCheck(s model.GuidelineSection, ci *model.CIRollup) (model.SectionStatus, string) {
	if ci == nil {
		return model.SectionUnknown, "CI status is not available"
	}

	if s.Check == "" {
		switch ci.State {
		case model.CIStateSuccess:
			return model.SectionSatisfied, "all checks passed"
		case model.CIStatePending:
			return model.SectionUnknown, "CI is still running"
		case model.CIStateNone:
			return model.SectionUnknown, "no CI checks have reported"
		default:
			return model.SectionMissing, fmt.Sprintf("CI is %s", ci.State)
		}
	}

	check, ok := findCheck(ci.Checks, s.Check)
	if !ok {
		return model.SectionUnknown, fmt.Sprintf("check %q has not reported", s.Check)
	}

	switch strings.ToLower(check.State) {
	case "success", "neutral", "skipped":
		return model.SectionSatisfied, fmt.Sprintf("check %q passed", check.Name)
	case "", "pending", "expected", "queued", "in_progress", "waiting", "requested":
		return model.SectionUnknown, fmt.Sprintf("check %q is pending", check.Name)
	default:
		return model.SectionMissing, fmt.Sprintf("check %q reported %s", check.Name, strings.ToLower(check.State))
	}
}

func evaluateFiles(s model.GuidelineSection, item model.Item) (model.SectionStatus, string) {
	if item.Files == nil {
		return model.SectionUnknown, "changed files are not available"
	}

	var triggered bool
	for _, f := range item.Files {
		if matchAny(s.Paths, f.Path) {
			triggered = true
			break
		}
	}
	if !triggered {
		return model.SectionSatisfied, "no changes require it"
	}

	for _, f := range item.Files {
		if matchAny(s.RequirePaths, f.Path) {
			return model.SectionSatisfied, fmt.Sprintf("%s changed", f.Path)
		}
	}
	return model.SectionMissing, fmt.Sprintf("changes under %s without changes under %s",
		strings.Join(s.Paths, ", "), strings.Join(s.RequirePaths, ", "))
}

// findCheck matches a check by name case-insensitively; name may be a glob.
func findCheck(checks []model.StatusCheck, name string) (model.StatusCheck, bool) {
	pattern := strings.ToLower(name)
	for _, c := range checks {
		got := strings.ToLower(c.Name)
		if got == pattern {
			return c, true
		}
		if ok, _ := path.Match(pattern, got); ok {
			return c, true
		}
	}
	return model.StatusCheck{}, false
}

// isFilled reports whether text has real content once template placeholders
// are removed. Matching is case-insensitive.
func isFilled(text string, placeholders []string) bool {
	text = strings.ToLower(text)
	for _, p := range placeholders {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		text = strings.ReplaceAll(text, p, "")
	}
	return strings.IndexFunc(text, isAlnum) >= 0
}

// withTemplatePlaceholders returns sections whose heading sections also treat
// the template's own text under that heading as placeholder text, so an
// unedited template never counts as filled. Only template lines of at least
// two words are used; shorter lines such as "N/A" are legitimate answers.
func withTemplatePlaceholders(sections []model.GuidelineSection, tmpl string) []model.GuidelineSection {
	if strings.TrimSpace(tmpl) == "" {
		return sections
	}
	parsed := parseBody(tmpl)

	out := make([]model.GuidelineSection, len(sections))
	for i, s := range sections {
		out[i] = s
		if s.Kind != model.SectionKindHeading {
			continue
		}
		sec, ok := parsed.find(s.Heading)
		if !ok {
			continue
		}
		var lines []string
		for _, line := range strings.Split(sec.Text, "\n") {
			line = strings.TrimSpace(line)
			if len(strings.Fields(line)) >= 2 {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out[i].Placeholders = append(slices.Clone(s.Placeholders), lines...)
		}
	}
	return out
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
