// Package github implements the ItemFetcher and ActionWriter ports using the
// go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ItemFetcher = (*Client)(nil)

// maxDiffLen bounds the unified diff kept on a snapshot.
const maxDiffLen = 10000

// Client implements the driven.ItemFetcher and driven.ActionWriter ports.
type Client struct {
	gh         *gh.Client
	token      string       // Stored for GraphQL Authorization header.
	graphqlURL string       // "https://api.github.com/graphql" in production; derived from baseURL in tests.
	graphql    *http.Client // Client used for GraphQL requests.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
		graphql:    graphqlHTTPClient,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
		graphql:    httpClient,
	}, nil
}

// FetchItem builds a fresh snapshot of a pull request or issue. Pull requests
// additionally carry their changed files, commits, a truncated diff and the
// CI rollup of the head commit. A missing CI rollup leaves Item.CI nil.
func (c *Client) FetchItem(ctx context.Context, repoFullName string, number int) (*model.Item, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone) {
			return nil, fmt.Errorf("%s#%d: %w", repoFullName, number, model.ErrItemNotFound)
		}
		return nil, fmt.Errorf("fetching %s#%d: %w", repoFullName, number, err)
	}
	logRateLimit(resp, repoFullName+"/issue", 0, 1)

	item := mapIssue(issue, owner, repo)

	comments, err := c.fetchComments(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	item.Comments = comments

	if !item.IsPullRequest() {
		return &item, nil
	}

	if err := c.fetchPullRequestDetails(ctx, owner, repo, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) fetchPullRequestDetails(ctx context.Context, owner, repo string, item *model.Item) error {
	repoFullName := owner + "/" + repo

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, item.Number)
	if err != nil {
		return fmt.Errorf("fetching pull request %s#%d: %w", repoFullName, item.Number, err)
	}
	logRateLimit(resp, repoFullName+"/pr", 0, 1)
	item.HeadSHA = pr.GetHead().GetSHA()
	item.NodeID = pr.GetNodeID()
	if pr.GetMerged() {
		item.State = model.ItemStateClosed
	}

	if item.Files, err = c.fetchFiles(ctx, owner, repo, item.Number); err != nil {
		return err
	}
	if item.Commits, err = c.fetchCommits(ctx, owner, repo, item.Number); err != nil {
		return err
	}

	diff, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, item.Number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		// The diff only feeds the label classifier; a snapshot without it is still usable.
		slog.Warn("fetching diff failed", "repo", repoFullName, "number", item.Number, "error", err)
	} else {
		item.Diff = truncate(diff, maxDiffLen)
	}

	item.CI = c.FetchCIRollup(ctx, repoFullName, item.Number)
	return nil
}

func (c *Client) fetchComments(ctx context.Context, owner, repo string, number int) ([]model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		Sort:        gh.Ptr("created"),
		Direction:   gh.Ptr("asc"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	allComments := []model.Comment{}

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		for _, comment := range comments {
			allComments = append(allComments, mapComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

func (c *Client) fetchFiles(ctx context.Context, owner, repo string, number int) ([]model.FileChange, error) {
	opts := &gh.ListOptions{PerPage: 100}
	allFiles := []model.FileChange{}

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/files", opts.Page, len(files))

		for _, f := range files {
			allFiles = append(allFiles, model.FileChange{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// fetchCommits lists the pull request's commits, leaving out merges of the
// default branch into the PR branch.
func (c *Client) fetchCommits(ctx context.Context, owner, repo string, number int) ([]model.Commit, error) {
	opts := &gh.ListOptions{PerPage: 100}
	allCommits := []model.Commit{}

	for {
		commits, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		for _, rc := range commits {
			msg := rc.GetCommit().GetMessage()
			if isBaseMerge(msg) {
				continue
			}
			allCommits = append(allCommits, model.Commit{
				SHA:     rc.GetSHA(),
				Message: msg,
				URL:     rc.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// ListOpenItems returns the numbers of all open pull requests and issues,
// oldest first.
func (c *Client) ListOpenItems(ctx context.Context, repoFullName string) ([]int, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	numbers := []int{}

	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing open items for %s (page %d): %w", repoFullName, opts.ListOptions.Page, err)
		}

		logRateLimit(resp, repoFullName, opts.ListOptions.Page, len(issues))

		for _, issue := range issues {
			numbers = append(numbers, issue.GetNumber())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return numbers, nil
}

// mapIssue converts a go-github Issue (which also represents pull requests)
// to a domain model Item. It uses GetXxx() helper methods exclusively to
// avoid nil pointer panics.
func mapIssue(issue *gh.Issue, owner, repo string) model.Item {
	kind := model.ItemKindIssue
	if issue.IsPullRequest() {
		kind = model.ItemKindPullRequest
	}

	state := model.ItemStateOpen
	if issue.GetState() == "closed" {
		state = model.ItemStateClosed
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return model.Item{
		NodeID:    issue.GetNodeID(),
		Number:    issue.GetNumber(),
		RepoOwner: owner,
		RepoName:  repo,
		Kind:      kind,
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		Author:    issue.GetUser().GetLogin(),
		State:     state,
		Labels:    labels,
	}
}

// mapComment converts a go-github IssueComment to a domain model Comment.
func mapComment(c *gh.IssueComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		Author:    c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func isBaseMerge(msg string) bool {
	return strings.HasPrefix(msg, "Merge branch 'main' into") ||
		strings.HasPrefix(msg, "Merge branch 'master' into")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// isNotFound reports whether err is a GitHub 404 response.
func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
