package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBody(t *testing.T) {
	body := "Intro line.\n\n" +
		"## Summary\n\nAdds **retries** to the uploader.\n\n" +
		"<!-- Please describe how you tested this -->\n\n" +
		"## Checklist\n\n- [x] Tests added\n- [ ] Docs updated\n- plain item\n"

	parsed := parseBody(body)
	require.Len(t, parsed.Sections, 3)

	assert.Equal(t, "Intro line.", parsed.Sections[0].Text)

	summary, ok := parsed.find("summary")
	require.True(t, ok)
	assert.Equal(t, "Adds retries to the uploader.", summary.Text)
	assert.NotContains(t, summary.Text, "describe how you tested")

	checklist, ok := parsed.find("Checklist")
	require.True(t, ok)
	assert.Equal(t, []string{"Tests added"}, checklist.Checked)
	assert.Equal(t, []string{"Docs updated"}, checklist.Unchecked)
	assert.NotContains(t, checklist.Text, "Docs updated")
	assert.Contains(t, checklist.Text, "plain item")

	_, ok = parsed.find("Testing")
	assert.False(t, ok)
}

func TestParseBody_HeadingPrefixNeedsWordBoundary(t *testing.T) {
	parsed := parseBody("## Testing\n\nran the suite\n\n## Type of change: bug fix\n\n- [x] fix\n")

	_, ok := parsed.find("Test")
	assert.False(t, ok, "a heading must not match inside a longer word")

	sec, ok := parsed.find("Testing")
	require.True(t, ok)
	assert.Equal(t, "ran the suite", sec.Text)

	_, ok = parsed.find("Type of change")
	assert.True(t, ok, "a heading may continue after a word boundary")
}

func TestHeadingMatches(t *testing.T) {
	assert.True(t, headingMatches("description", "description"))
	assert.True(t, headingMatches("description of the change", "description"))
	assert.True(t, headingMatches("type of change: bug", "type of change"))
	assert.False(t, headingMatches("testing", "test"))
	assert.False(t, headingMatches("descriptions", "description"))
	assert.False(t, headingMatches("summary", "description"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a & b ", plainText("a &amp; b <!-- hidden -->"))
	assert.Equal(t, "bold", plainText("<b>bold</b>"))
}

func TestNormalizeHeading(t *testing.T) {
	assert.Equal(t, "description", normalizeHeading("  Description: "))
	assert.Equal(t, "type of change", normalizeHeading("- Type  of Change:"))
	assert.Equal(t, "testing", normalizeHeading("🧪 Testing"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("fix the crash on start", "crash"))
	assert.True(t, containsWord("crash", "crash"))
	assert.True(t, containsWord("a memory leak.", "memory leak"))
	assert.False(t, containsWord("crashes", "crash"))
	assert.False(t, containsWord("recrash", "crash"))
	assert.False(t, containsWord("anything", ""))
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"docs/", "docs/guide/intro.md", true},
		{"docs/**", "docs/guide/intro.md", true},
		{"/docs/", "docs/a.md", true},
		{"docs/", "internal/docs/a.md", false},
		{"*.md", "README.md", true},
		{"*.md", "docs/guide/intro.md", true},
		{"cmd/*/main.go", "cmd/triagebot/main.go", true},
		{"cmd/*.go", "cmd/triagebot/main.go", false},
		{"Makefile", "Makefile", true},
		{"", "Makefile", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPath(tt.pattern, tt.path))
		})
	}
}

func TestPatternSpecificity(t *testing.T) {
	assert.Equal(t, 2, patternSpecificity(".github/workflows/"))
	assert.Equal(t, 1, patternSpecificity("docs/**"))
	assert.Equal(t, 0, patternSpecificity("*.md"))
	assert.Equal(t, 2, patternSpecificity("cmd/*/main.go"))
}
