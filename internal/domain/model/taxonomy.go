package model

import "strings"

// Category is one entry of a repository's label taxonomy.
type Category struct {
	Label       string
	Owner       string // Owning team.
	Description string // Natural-language disambiguation rule.
	Paths       []string
	Keywords    []string
}

// Taxonomy is the ordered set of labels the bot may apply to a repository.
type Taxonomy []Category

// Contains reports whether label is a member of the taxonomy (case-insensitive).
func (t Taxonomy) Contains(label string) bool {
	_, ok := t.Find(label)
	return ok
}

// Find returns the category for label, matched case-insensitively.
func (t Taxonomy) Find(label string) (Category, bool) {
	for _, c := range t {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return Category{}, false
}

// Labels returns the label names in taxonomy order.
func (t Taxonomy) Labels() []string {
	labels := make([]string, 0, len(t))
	for _, c := range t {
		labels = append(labels, c.Label)
	}
	return labels
}

// LabelHint is a label suggestion produced outside the engine, e.g. by a
// language model reading the item's free text.
type LabelHint struct {
	Label      string
	Confidence float64 // 0..1
	Reason     string
}
