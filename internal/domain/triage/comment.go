package triage

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

var outstandingTemplate = template.Must(template.New("outstanding").Parse(`{{.Marker}}

Hello @{{.Author}}, thank you for {{if .IsPR}}creating this PR{{else}}opening this issue{{end}}!
{{- if .Missing}}

The following items from our contribution guidelines are still missing:
{{range .Missing}}
- **{{.Title}}**: {{.Detail}}
{{- end}}
{{- end}}
{{- if .Unknown}}

The following could not be verified yet:
{{range .Unknown}}
- **{{.Title}}**: {{.Detail}}
{{- end}}
{{- end}}

This information will help reviewers to review your {{.Noun}} more efficiently. Thanks!

{{.Tag}}
`))

var ackTemplate = template.Must(template.New("ack").Parse(`{{.Marker}}

Hello @{{.Author}}, thank you for your contribution! This {{.Noun}} appears to follow our contribution guidelines and is categorised as ` + "`{{.Label}}`" + `; please wait for reviewer feedback.
{{- if .Owner}} The {{.Owner}} team owns this category.{{end}}

{{.Tag}}
`))

type commentLine struct {
	Title  string
	Detail string
}

type outstandingData struct {
	Marker  string
	Author  string
	IsPR    bool
	Noun    string
	Missing []commentLine
	Unknown []commentLine
	Tag     string
}

type ackData struct {
	Marker string
	Author string
	Noun   string
	Label  string
	Owner  string
	Tag    string
}

// renderOutstanding builds the comment listing exactly the currently
// outstanding sections. Unknown sections are listed separately with the
// reason they could not be verified.
func renderOutstanding(item model.Item, marker string, verdict model.Verdict) (string, error) {
	data := outstandingData{
		Marker: marker,
		Author: item.Author,
		IsPR:   item.IsPullRequest(),
		Noun:   noun(item),
		Tag:    missingTag(verdict.OutstandingIDs()),
	}

	for _, r := range verdict.Outstanding() {
		line := commentLine{Title: sectionTitle(r.Section)}
		if r.Status == model.SectionUnknown {
			line.Detail = r.Reason
			data.Unknown = append(data.Unknown, line)
			continue
		}
		line.Detail = r.Section.Description
		if line.Detail == "" {
			line.Detail = r.Reason
		}
		data.Missing = append(data.Missing, line)
	}

	return execute(outstandingTemplate, data)
}

// renderAck builds the acknowledgement posted together with the label.
func renderAck(item model.Item, marker string, category model.Category) (string, error) {
	return execute(ackTemplate, ackData{
		Marker: marker,
		Author: item.Author,
		Noun:   noun(item),
		Label:  category.Label,
		Owner:  category.Owner,
		Tag:    ackTag,
	})
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s comment: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func noun(item model.Item) string {
	if item.IsPullRequest() {
		return "PR"
	}
	return "issue"
}

func sectionTitle(s model.GuidelineSection) string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}
