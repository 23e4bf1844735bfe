// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// ItemFetcher defines the driven port for reading item snapshots from the
// hosting platform. Every call returns fresh data; nothing is cached across
// triage invocations by the domain.
type ItemFetcher interface {
	// FetchItem returns a complete snapshot of the pull request or issue.
	// Returns an error wrapping model.ErrItemNotFound if it does not exist.
	FetchItem(ctx context.Context, repoFullName string, number int) (*model.Item, error)

	// ListOpenItems returns the numbers of all open pull requests and issues
	// in the repository.
	ListOpenItems(ctx context.Context, repoFullName string) ([]int, error)
}
