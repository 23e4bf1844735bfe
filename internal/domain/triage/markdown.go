package triage

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	mdParser    goldmark.Markdown
	stripPolicy *bluemonday.Policy
)

func init() {
	mdParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	stripPolicy = bluemonday.StrictPolicy()
}

// bodySection is the content between one heading and the next.
// The preamble before the first heading has Level 0.
type bodySection struct {
	Heading   string
	Level     int
	Text      string // Filled content: no HTML, no unchecked task items.
	Checked   []string
	Unchecked []string
}

// parsedBody is the heading structure of an item body.
type parsedBody struct {
	Sections []bodySection
}

// parseBody splits a Markdown body into heading sections. HTML blocks and
// inline HTML (template placeholders such as <!-- describe your change -->)
// are dropped.
func parseBody(body string) parsedBody {
	src := []byte(body)
	doc := mdParser.Parser().Parse(text.NewReader(src))

	sections := []bodySection{{}}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			sections = append(sections, bodySection{
				Heading: strings.TrimSpace(inlineText(h, src)),
				Level:   h.Level,
			})
			continue
		}
		collectBlock(&sections[len(sections)-1], n, src)
	}

	for i := range sections {
		sections[i].Text = strings.TrimSpace(sections[i].Text)
	}
	return parsedBody{Sections: sections}
}

// find returns the first section whose heading matches, merged with any
// deeper sub-sections nested under it.
func (p parsedBody) find(heading string) (bodySection, bool) {
	want := normalizeHeading(heading)
	if want == "" {
		return bodySection{}, false
	}

	for i, s := range p.Sections {
		if s.Level == 0 {
			continue
		}
		if !headingMatches(normalizeHeading(s.Heading), want) {
			continue
		}

		merged := s
		for _, sub := range p.Sections[i+1:] {
			if sub.Level <= s.Level {
				break
			}
			merged.Text = strings.TrimSpace(merged.Text + "\n" + sub.Text)
			merged.Checked = append(merged.Checked, sub.Checked...)
			merged.Unchecked = append(merged.Unchecked, sub.Unchecked...)
		}
		return merged, true
	}
	return bodySection{}, false
}

// headingMatches reports whether got equals want or starts with it at a word
// boundary, so "Testing notes" matches "testing" but "Testing" does not
// match "test".
func headingMatches(got, want string) bool {
	if got == want {
		return true
	}
	return strings.HasPrefix(got, want) && !isWordByteAt(got, len(want))
}

// Text returns the filled content of the whole body.
func (p parsedBody) Text() string {
	parts := make([]string, 0, len(p.Sections)*2)
	for _, s := range p.Sections {
		if s.Heading != "" {
			parts = append(parts, s.Heading)
		}
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func collectBlock(sec *bodySection, n ast.Node, src []byte) {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			checked, label, ok := taskItem(v, src)
			if !ok {
				return ast.WalkContinue, nil
			}
			if checked {
				sec.Checked = append(sec.Checked, label)
				b.WriteString(label)
				b.WriteByte('\n')
			} else {
				sec.Unchecked = append(sec.Unchecked, label)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(v.URL(src))
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		}

		if node.Type() == ast.TypeBlock && node != n {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	if sec.Text != "" {
		sec.Text += "\n"
	}
	sec.Text += b.String()
}

// taskItem reports whether li is a GFM task-list item and returns its state
// and label.
func taskItem(li *ast.ListItem, src []byte) (bool, string, bool) {
	block := li.FirstChild()
	if block == nil {
		return false, "", false
	}
	box, ok := block.FirstChild().(*extast.TaskCheckBox)
	if !ok {
		return false, "", false
	}
	return box.IsChecked, strings.TrimSpace(inlineText(block, src)), true
}

// inlineText concatenates the text leaves under n, skipping raw HTML.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// plainText strips every HTML element and comment from s.
func plainText(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// normalizeHeading lower-cases a heading and drops decoration such as
// leading emoji, numbering punctuation and a trailing colon.
func normalizeHeading(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	s = strings.TrimRight(s, ": ")
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether needle occurs in haystack delimited by
// non-alphanumeric characters. Both arguments must already be lower-cased.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		if !isWordByteAt(haystack, idx-1) && !isWordByteAt(haystack, end) {
			return true
		}
		start = idx + 1
	}
}

func isWordByteAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
