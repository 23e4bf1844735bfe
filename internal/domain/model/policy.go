package model

import (
	"fmt"
	"strings"
)

// DefaultBotMarker identifies comments written by the triage bot.
const DefaultBotMarker = "**Response from Triage Bot**"

// ApprovalMode controls whether decisions are executed automatically.
type ApprovalMode string

const (
	ApprovalAuto   ApprovalMode = "auto"   // Execute decisions without asking.
	ApprovalManual ApprovalMode = "manual" // Record decisions only; an operator acts on them.
)

// Policy is the complete triage configuration for one repository. It is
// passed explicitly into the engine on every invocation.
type Policy struct {
	Repo          string // owner/name
	BotMarker     string
	Approval      ApprovalMode
	Sections      []GuidelineSection
	Taxonomy      Taxonomy
	Contributing  string // Contribution guide text.
	Template      string // PR/issue template; text under its headings counts as placeholder.
	MinConfidence float64

	// IgnoreAuthors lists automation accounts (e.g. "github-actions[bot]")
	// whose comments never count as human involvement.
	IgnoreAuthors []string
}

// Marker returns the configured bot marker or the default.
func (p Policy) Marker() string {
	if p.BotMarker == "" {
		return DefaultBotMarker
	}
	return p.BotMarker
}

// Validate checks structural invariants: a non-empty taxonomy with unique
// labels, and uniquely identified sections of a known kind.
func (p Policy) Validate() error {
	if len(p.Taxonomy) == 0 {
		return fmt.Errorf("policy for %s: %w: empty label taxonomy", p.Repo, ErrConfigurationMissing)
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("policy for %s: %w: no guideline sections", p.Repo, ErrConfigurationMissing)
	}

	labels := make(map[string]bool, len(p.Taxonomy))
	for _, c := range p.Taxonomy {
		key := strings.ToLower(strings.TrimSpace(c.Label))
		if key == "" {
			return fmt.Errorf("policy for %s: category with empty label", p.Repo)
		}
		if labels[key] {
			return fmt.Errorf("policy for %s: duplicate label %q", p.Repo, c.Label)
		}
		labels[key] = true
	}

	ids := make(map[string]bool, len(p.Sections))
	for _, s := range p.Sections {
		if s.ID == "" {
			return fmt.Errorf("policy for %s: section %q has no id", p.Repo, s.Title)
		}
		if ids[s.ID] {
			return fmt.Errorf("policy for %s: duplicate section id %q", p.Repo, s.ID)
		}
		ids[s.ID] = true

		switch s.Kind {
		case SectionKindHeading, SectionKindCheckbox:
			if s.Heading == "" {
				return fmt.Errorf("policy for %s: section %q needs a heading", p.Repo, s.ID)
			}
		case SectionKindFiles:
			if len(s.Paths) == 0 || len(s.RequirePaths) == 0 {
				return fmt.Errorf("policy for %s: section %q needs paths and require_paths", p.Repo, s.ID)
			}
		case SectionKindStatusCheck, SectionKindLinkedIssue:
		default:
			return fmt.Errorf("policy for %s: section %q has unknown kind %q", p.Repo, s.ID, s.Kind)
		}
	}

	switch p.Approval {
	case "", ApprovalAuto, ApprovalManual:
	default:
		return fmt.Errorf("policy for %s: unknown approval mode %q", p.Repo, p.Approval)
	}

	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("policy for %s: min_confidence %v out of range [0,1]", p.Repo, p.MinConfidence)
	}

	return nil
}
