package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActionWriter = (*Client)(nil)

// AuthenticatedUser returns the login the client's token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	return user.GetLogin(), nil
}

// AddLabel applies an existing repository label to a pull request or issue.
// Labels already present are left untouched by GitHub, so repeating the call
// is harmless.
func (c *Client) AddLabel(ctx context.Context, repoFullName string, number int, label string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{label})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s#%d: %w", repoFullName, number, model.ErrItemNotFound)
		}
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
			return fmt.Errorf("label %q rejected for %s#%d: %w", label, repoFullName, number, err)
		}
		return fmt.Errorf("adding label %q to %s#%d: %w", label, repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/labels", 0, 1)
	return nil
}

// CreateComment posts a top-level conversation comment on a pull request or issue.
func (c *Client) CreateComment(ctx context.Context, repoFullName string, number int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s#%d: %w", repoFullName, number, model.ErrItemNotFound)
		}
		return fmt.Errorf("creating comment on %s#%d: %w", repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/comments", 0, 1)
	return nil
}
