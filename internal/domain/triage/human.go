package triage

import (
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// HumanInvolvementDetector decides whether someone other than the author and
// the bot has joined the conversation.
type HumanInvolvementDetector struct {
	Marker        string
	IgnoreAuthors []string
}

// Involved scans the comments in order and returns true at the first comment
// whose author is not the item author and whose body lacks the bot marker.
func (d HumanInvolvementDetector) Involved(item model.Item) bool {
	for _, c := range item.Comments {
		if strings.EqualFold(c.Author, item.Author) {
			continue
		}
		if c.IsBotAuthored(d.Marker) || d.ignored(c.Author) {
			continue
		}
		return true
	}
	return false
}

func (d HumanInvolvementDetector) ignored(author string) bool {
	for _, a := range d.IgnoreAuthors {
		if strings.EqualFold(a, author) {
			return true
		}
	}
	return false
}
