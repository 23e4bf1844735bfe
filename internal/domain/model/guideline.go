package model

import "slices"

// SectionKind selects how a guideline section is checked against an item.
type SectionKind string

const (
	SectionKindHeading     SectionKind = "heading"      // Body heading present with filled content.
	SectionKindCheckbox    SectionKind = "checkbox"     // At least one task item checked under a heading.
	SectionKindStatusCheck SectionKind = "status_check" // A CI check (or the whole rollup) succeeded.
	SectionKindLinkedIssue SectionKind = "linked_issue" // Body references an issue.
	SectionKindFiles       SectionKind = "files"        // Changes under Paths are accompanied by RequirePaths.
)

// GuidelineSection is one named, checkable requirement derived from the
// repository's contribution guide or PR/issue template.
type GuidelineSection struct {
	ID          string
	Title       string
	Description string // Cited verbatim in comments to the author.
	Kind        SectionKind

	Heading      string   // heading, checkbox
	Placeholders []string // heading: template text that does not count as content.
	Check        string   // status_check: context or check-run name; empty means the whole rollup.
	Paths        []string // files: trigger globs.
	RequirePaths []string // files: at least one changed file must match one of these.

	AppliesTo []ItemKind // Empty means every kind.
}

// AppliesToKind reports whether the section is evaluated for the given kind.
func (s GuidelineSection) AppliesToKind(kind ItemKind) bool {
	return len(s.AppliesTo) == 0 || slices.Contains(s.AppliesTo, kind)
}

// SectionStatus is the evaluator's judgment of a single section.
type SectionStatus string

const (
	SectionSatisfied SectionStatus = "satisfied"
	SectionMissing   SectionStatus = "missing"
	SectionUnknown   SectionStatus = "unknown" // Insufficient signal; never treated as satisfied.
)

// SectionResult pairs a section with its status and a short justification.
type SectionResult struct {
	Section GuidelineSection
	Status  SectionStatus
	Reason  string
}

// Verdict is the ordered set of section results for one item snapshot.
// It is a pure function of the snapshot and the guideline sections.
type Verdict struct {
	Results []SectionResult
}

// Satisfied returns the IDs of satisfied sections in policy order.
func (v Verdict) Satisfied() []string {
	return v.idsWith(SectionSatisfied)
}

// Missing returns the IDs of sections judged missing.
func (v Verdict) Missing() []string {
	return v.idsWith(SectionMissing)
}

// Unknown returns the IDs of sections that could not be judged.
func (v Verdict) Unknown() []string {
	return v.idsWith(SectionUnknown)
}

// Outstanding returns every section that is not satisfied, in policy order.
// Unknown sections count as outstanding.
func (v Verdict) Outstanding() []SectionResult {
	var out []SectionResult
	for _, r := range v.Results {
		if r.Status != SectionSatisfied {
			out = append(out, r)
		}
	}
	return out
}

// OutstandingIDs returns the IDs of Outstanding sections.
func (v Verdict) OutstandingIDs() []string {
	out := v.Outstanding()
	ids := make([]string, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.Section.ID)
	}
	return ids
}

// AllSatisfied reports whether every evaluated section is satisfied.
func (v Verdict) AllSatisfied() bool {
	return len(v.Outstanding()) == 0
}

func (v Verdict) idsWith(status SectionStatus) []string {
	ids := []string{}
	for _, r := range v.Results {
		if r.Status == status {
			ids = append(ids, r.Section.ID)
		}
	}
	return ids
}
