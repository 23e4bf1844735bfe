package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// DefaultMinConfidence is the classifier confidence floor used when a policy
// does not set one.
const DefaultMinConfidence = 0.7

// document is the on-disk shape of a repository policy.
type document struct {
	BotMarker        string        `yaml:"bot_marker" toml:"bot_marker"`
	Approval         string        `yaml:"approval" toml:"approval"`
	MinConfidence    *float64      `yaml:"min_confidence" toml:"min_confidence"`
	IgnoreAuthors    []string      `yaml:"ignore_authors" toml:"ignore_authors"`
	Contributing     string        `yaml:"contributing" toml:"contributing"`
	ContributingFile string        `yaml:"contributing_file" toml:"contributing_file"`
	Template         string        `yaml:"template" toml:"template"`
	TemplateFile     string        `yaml:"template_file" toml:"template_file"`
	Sections         []sectionDoc  `yaml:"sections" toml:"sections"`
	Labels           []categoryDoc `yaml:"labels" toml:"labels"`
}

type sectionDoc struct {
	ID           string   `yaml:"id" toml:"id"`
	Title        string   `yaml:"title" toml:"title"`
	Description  string   `yaml:"description" toml:"description"`
	Kind         string   `yaml:"kind" toml:"kind"`
	Heading      string   `yaml:"heading" toml:"heading"`
	Placeholders []string `yaml:"placeholders" toml:"placeholders"`
	Check        string   `yaml:"check" toml:"check"`
	Paths        []string `yaml:"paths" toml:"paths"`
	RequirePaths []string `yaml:"require_paths" toml:"require_paths"`
	AppliesTo    []string `yaml:"applies_to" toml:"applies_to"`
}

type categoryDoc struct {
	Label       string   `yaml:"label" toml:"label"`
	Owner       string   `yaml:"owner" toml:"owner"`
	Description string   `yaml:"description" toml:"description"`
	Paths       []string `yaml:"paths" toml:"paths"`
	Keywords    []string `yaml:"keywords" toml:"keywords"`
}

// decode parses data as YAML or TOML depending on the file extension.
// Unknown keys are rejected so typos surface as configuration errors.
func decode(path string, data []byte) (document, error) {
	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return document{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return document{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return doc, nil
}

// toPolicy converts a document to a domain Policy, applying defaults and
// reading referenced guide files relative to the policy file.
func (d document) toPolicy(repo, path string) (*model.Policy, error) {
	p := &model.Policy{
		Repo:          repo,
		BotMarker:     d.BotMarker,
		Approval:      model.ApprovalMode(strings.ToLower(d.Approval)),
		MinConfidence: DefaultMinConfidence,
		IgnoreAuthors: d.IgnoreAuthors,
		Contributing:  d.Contributing,
		Template:      d.Template,
	}
	if p.Approval == "" {
		p.Approval = model.ApprovalAuto
	}
	if d.MinConfidence != nil {
		p.MinConfidence = *d.MinConfidence
	}

	var err error
	if d.ContributingFile != "" {
		if p.Contributing, err = readRelative(path, d.ContributingFile); err != nil {
			return nil, err
		}
	}
	if d.TemplateFile != "" {
		if p.Template, err = readRelative(path, d.TemplateFile); err != nil {
			return nil, err
		}
	}

	for _, s := range d.Sections {
		sec, err := s.toSection()
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", path, err)
		}
		p.Sections = append(p.Sections, sec)
	}
	for _, c := range d.Labels {
		p.Taxonomy = append(p.Taxonomy, model.Category{
			Label:       strings.TrimSpace(c.Label),
			Owner:       c.Owner,
			Description: c.Description,
			Paths:       c.Paths,
			Keywords:    c.Keywords,
		})
	}
	return p, nil
}

// toSection converts a section entry. Unknown applies_to values are an error
// rather than ignored, since an empty list means every item kind.
func (s sectionDoc) toSection() (model.GuidelineSection, error) {
	kind := model.SectionKind(strings.ToLower(s.Kind))
	if kind == "" {
		kind = model.SectionKindHeading
	}
	title := s.Title
	if title == "" {
		title = s.ID
	}
	heading := s.Heading
	if heading == "" && (kind == model.SectionKindHeading || kind == model.SectionKindCheckbox) {
		heading = title
	}

	var appliesTo []model.ItemKind
	for _, k := range s.AppliesTo {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "pr", "pull_request", "pull_requests":
			appliesTo = append(appliesTo, model.ItemKindPullRequest)
		case "issue", "issues":
			appliesTo = append(appliesTo, model.ItemKindIssue)
		default:
			return model.GuidelineSection{}, fmt.Errorf("section %q: unknown applies_to value %q", s.ID, k)
		}
	}

	return model.GuidelineSection{
		ID:           s.ID,
		Title:        title,
		Description:  s.Description,
		Kind:         kind,
		Heading:      heading,
		Placeholders: s.Placeholders,
		Check:        s.Check,
		Paths:        s.Paths,
		RequirePaths: s.RequirePaths,
		AppliesTo:    appliesTo,
	}, nil
}

// readRelative reads name relative to the directory of policyPath. Absolute
// names and names escaping that directory are rejected.
func readRelative(policyPath, name string) (string, error) {
	if filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("policy %s: %q must be a relative path inside the policy directory", policyPath, name)
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(policyPath), name))
	if err != nil {
		return "", fmt.Errorf("policy %s: reading %s: %w", policyPath, name, err)
	}
	return string(data), nil
}
