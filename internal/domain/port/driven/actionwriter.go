package driven

import "context"

// ActionWriter defines the driven port for the two mutations the bot ever
// performs. It is intentionally separate from ItemFetcher.
type ActionWriter interface {
	// AddLabel adds a single label to the pull request or issue.
	AddLabel(ctx context.Context, repoFullName string, number int, label string) error

	// CreateComment posts a top-level comment on the pull request or issue.
	CreateComment(ctx context.Context, repoFullName string, number int, body string) error
}
