package triage

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// Every bot comment ends with a hidden topic tag so later runs can tell which
// sections it raised:
//
//	<!-- triagebot:missing=description,category -->
//	<!-- triagebot:ack -->
var topicPattern = regexp.MustCompile(`<!--\s*triagebot:(ack|missing=([^>]*?))\s*-->`)

const ackTag = "<!-- triagebot:ack -->"

// ackPhrases identify untagged acknowledgement comments.
var ackPhrases = []string{
	"appears to follow our contribution guidelines",
	"follows our contribution guidelines",
	"looks good",
	"look good",
}

func missingTag(ids []string) string {
	return "<!-- triagebot:missing=" + strings.Join(ids, ",") + " -->"
}

// commentTopic is what a prior bot comment was about.
type commentTopic struct {
	Ack     bool
	Missing []string
	Tagged  bool
}

// readTopic extracts the topic of a bot comment from its tag. Untagged
// comments are read as acknowledgements when they carry an ack phrase and
// do not mention anything missing; otherwise section titles are matched.
func readTopic(body string, sections []model.GuidelineSection) commentTopic {
	if m := topicPattern.FindStringSubmatch(body); m != nil {
		if m[1] == "ack" {
			return commentTopic{Ack: true, Tagged: true}
		}
		var ids []string
		for _, id := range strings.Split(m[2], ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return commentTopic{Missing: ids, Tagged: true}
	}

	lower := strings.ToLower(plainText(body))
	if !strings.Contains(lower, "missing") {
		for _, phrase := range ackPhrases {
			if strings.Contains(lower, phrase) {
				return commentTopic{Ack: true}
			}
		}
	}

	var ids []string
	for _, s := range sections {
		title := strings.ToLower(strings.TrimSpace(s.Title))
		if containsWord(lower, title) || containsWord(lower, strings.ToLower(s.ID)) {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) > 0 {
		return commentTopic{Missing: ids}
	}

	return commentTopic{}
}
