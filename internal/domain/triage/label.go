package triage

import (
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// LabelSelector picks at most one label from a taxonomy. ok is false when no
// category fits with enough confidence; callers must not apply a label then.
// A returned label is always spelled as in the taxonomy.
type LabelSelector interface {
	Select(item model.Item, taxonomy model.Taxonomy) (label string, ok bool)
}

// RuleSelector matches categories by changed-file paths and title keywords
// and picks the most specific one.
type RuleSelector struct{}

// categoryScore ranks a candidate: a full path match outranks a keyword-only
// match, then path specificity, then keyword specificity.
type categoryScore struct {
	pathMatched bool
	pathSpec    int
	keywordSpec int
}

func (a categoryScore) compare(b categoryScore) int {
	switch {
	case a.pathMatched != b.pathMatched:
		if a.pathMatched {
			return 1
		}
		return -1
	case a.pathSpec != b.pathSpec:
		return a.pathSpec - b.pathSpec
	default:
		return a.keywordSpec - b.keywordSpec
	}
}

// Select returns the single best-scoring category. A tie between two
// categories is reported as no confident match.
func (RuleSelector) Select(item model.Item, taxonomy model.Taxonomy) (string, bool) {
	haystack := keywordHaystack(item)

	var (
		best    categoryScore
		label   string
		matched bool
		tied    bool
	)
	for _, c := range taxonomy {
		score, ok := scoreCategory(c, item.Files, haystack)
		if !ok {
			continue
		}
		if !matched {
			best, label, matched = score, c.Label, true
			continue
		}
		switch cmp := score.compare(best); {
		case cmp > 0:
			best, label, tied = score, c.Label, false
		case cmp == 0:
			tied = true
		}
	}

	if !matched || tied {
		return "", false
	}
	return label, true
}

func scoreCategory(c model.Category, files []model.FileChange, haystack string) (categoryScore, bool) {
	var score categoryScore

	if spec, ok := pathCoverage(c.Paths, files); ok {
		score.pathMatched = true
		score.pathSpec = spec
	}

	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if containsWord(haystack, kw) {
			if words := len(strings.Fields(kw)); words > score.keywordSpec {
				score.keywordSpec = words
			}
		}
	}

	return score, score.pathMatched || score.keywordSpec > 0
}

// pathCoverage reports whether every changed file matches one of patterns.
// The specificity is that of the weakest file: for each file the narrowest
// matching pattern counts, and the minimum over files is returned.
func pathCoverage(patterns []string, files []model.FileChange) (int, bool) {
	if len(patterns) == 0 || len(files) == 0 {
		return 0, false
	}

	minSpec := -1
	for _, f := range files {
		fileSpec := -1
		for _, p := range patterns {
			if matchPath(p, f.Path) {
				if s := patternSpecificity(p); s > fileSpec {
					fileSpec = s
				}
			}
		}
		if fileSpec < 0 {
			return 0, false
		}
		if minSpec < 0 || fileSpec < minSpec {
			minSpec = fileSpec
		}
	}
	return minSpec, true
}

// keywordHaystack is the lower-cased text keywords are matched against:
// the title, plus the filled body for issues. Pull request bodies follow a
// template that names every category, so only their title counts.
func keywordHaystack(item model.Item) string {
	if item.IsPullRequest() {
		return strings.ToLower(item.Title)
	}
	return strings.ToLower(item.Title + "\n" + parseBody(item.Body).Text())
}

// HintSelector accepts a label suggested outside the engine when it names a
// taxonomy member with enough confidence.
type HintSelector struct {
	Hint          model.LabelHint
	MinConfidence float64
}

// Select implements LabelSelector.
func (s HintSelector) Select(_ model.Item, taxonomy model.Taxonomy) (string, bool) {
	if s.Hint.Label == "" || s.Hint.Confidence < s.MinConfidence {
		return "", false
	}
	c, ok := taxonomy.Find(s.Hint.Label)
	if !ok {
		return "", false
	}
	return c.Label, true
}

// FirstMatch tries each selector in order and returns the first match.
type FirstMatch []LabelSelector

// Select implements LabelSelector.
func (f FirstMatch) Select(item model.Item, taxonomy model.Taxonomy) (string, bool) {
	for _, s := range f {
		if s == nil {
			continue
		}
		if label, ok := s.Select(item, taxonomy); ok {
			return label, true
		}
	}
	return "", false
}
