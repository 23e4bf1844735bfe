package model

import (
	"strings"
	"time"
)

// ItemKind distinguishes pull requests from plain issues.
type ItemKind string

const (
	ItemKindPullRequest ItemKind = "pull_request"
	ItemKindIssue       ItemKind = "issue"
)

// ItemState represents the lifecycle state of an item.
type ItemState string

const (
	ItemStateOpen   ItemState = "open"
	ItemStateClosed ItemState = "closed"
)

// Item is an immutable point-in-time snapshot of a pull request or issue.
// It is built fresh at the start of every triage invocation and discarded
// afterwards; nothing in the triage path mutates it.
type Item struct {
	NodeID    string // GraphQL node ID.
	Number    int
	RepoOwner string
	RepoName  string
	Kind      ItemKind
	Title     string
	Body      string
	Author    string
	State     ItemState
	Labels    []string
	HeadSHA   string // Pull requests only.
	Files     []FileChange
	Commits   []Commit
	Comments  []Comment // Chronological order.
	Diff      string    // Truncated unified diff; pull requests only.

	// CI is nil when no rollup could be fetched. A nil rollup is an
	// ambiguous signal, never a passing one.
	CI *CIRollup
}

// RepoFullName returns the "owner/name" form of the item's repository.
func (i Item) RepoFullName() string {
	return i.RepoOwner + "/" + i.RepoName
}

// IsPullRequest reports whether the item is a pull request.
func (i Item) IsPullRequest() bool {
	return i.Kind == ItemKindPullRequest
}

// HasLabel reports whether the item carries the given label (case-insensitive,
// matching GitHub's label semantics).
func (i Item) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// FileChange summarizes one changed file of a pull request.
type FileChange struct {
	Path      string
	Status    string // added, modified, removed, renamed.
	Additions int
	Deletions int
}

// Commit is a single commit on a pull request.
type Commit struct {
	SHA     string
	Message string
	URL     string
}

// Comment is a top-level conversation comment on an item.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// IsBotAuthored reports whether the comment was written by the triage bot,
// identified by the marker string embedded in every bot comment.
func (c Comment) IsBotAuthored(marker string) bool {
	return marker != "" && strings.Contains(c.Body, marker)
}

// CIState is the aggregated state of a status-check rollup.
type CIState string

const (
	CIStateSuccess CIState = "success"
	CIStateFailure CIState = "failure"
	CIStatePending CIState = "pending"
	CIStateError   CIState = "error"
	CIStateNone    CIState = "none" // No checks configured or reported.
)

// CIRollup is the status-check rollup for the head commit of a pull request.
type CIRollup struct {
	State  CIState
	Checks []StatusCheck
}

// StatusCheck is one entry of the rollup: either a commit status context or a
// check run. State is normalized to lower case and uses the check run
// conclusion once the run has completed.
type StatusCheck struct {
	Name  string
	State string // success, failure, pending, error, neutral, skipped, ...
	URL   string
}
