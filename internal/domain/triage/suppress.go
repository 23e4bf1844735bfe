package triage

import (
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// DuplicateSuppressor decides whether a new bot comment would repeat what the
// bot already said. It compares the sections raised by the most recent bot
// comment with the sections outstanding now.
type DuplicateSuppressor struct {
	Sections []model.GuidelineSection
}

// ShouldComment reports whether proposed may be posted given the prior bot
// comments (chronological) and the currently outstanding section IDs.
//
//   - no prior bot comment: allow
//   - outstanding sections all raised by the last comment: suppress
//   - any outstanding section not raised by the last comment: allow
//   - nothing outstanding and the last comment was an acknowledgement: suppress
//   - outstanding sections after an acknowledgement (regression): allow
func (s DuplicateSuppressor) ShouldComment(proposed string, prior []model.Comment, currentMissing []string) bool {
	if len(prior) == 0 {
		return true
	}

	last := latest(prior)
	if strings.TrimSpace(last.Body) == strings.TrimSpace(proposed) {
		return false
	}

	topic := readTopic(last.Body, s.Sections)

	if len(currentMissing) == 0 {
		return !topic.Ack
	}
	if topic.Ack {
		return true
	}
	return !isSubset(currentMissing, topic.Missing)
}

// latest returns the most recent comment; later entries win ties.
func latest(comments []model.Comment) model.Comment {
	last := comments[0]
	for _, c := range comments[1:] {
		if !c.CreatedAt.Before(last.CreatedAt) {
			last = c
		}
	}
	return last
}

func isSubset(sub, set []string) bool {
	members := make(map[string]bool, len(set))
	for _, id := range set {
		members[strings.ToLower(id)] = true
	}
	for _, id := range sub {
		if !members[strings.ToLower(id)] {
			return false
		}
	}
	return true
}
