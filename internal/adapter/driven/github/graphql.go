package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

// ciRollupQuery reads the status-check rollup of a pull request's head commit.
// Contexts are either commit statuses (StatusContext) or check runs (CheckRun).
const ciRollupQuery = `query($owner: String!, $repo: String!, $pr: Int!) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $pr) {
			commits(last: 1) {
				nodes {
					commit {
						statusCheckRollup {
							state
							contexts(first: 100) {
								nodes {
									__typename
									... on StatusContext {
										context
										state
										targetUrl
									}
									... on CheckRun {
										name
										status
										conclusion
										detailsUrl
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// rollupContext is one node of statusCheckRollup.contexts.
type rollupContext struct {
	Typename string `json:"__typename"`

	// StatusContext
	Context   string `json:"context"`
	State     string `json:"state"`
	TargetURL string `json:"targetUrl"`

	// CheckRun
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	DetailsURL string `json:"detailsUrl"`
}

// graphqlResponse represents the expected shape of a GitHub GraphQL response
// for the CI rollup query.
type graphqlResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				Commits struct {
					Nodes []struct {
						Commit struct {
							StatusCheckRollup *struct {
								State    string `json:"state"`
								Contexts struct {
									Nodes []rollupContext `json:"nodes"`
								} `json:"contexts"`
							} `json:"statusCheckRollup"`
						} `json:"commit"`
					} `json:"nodes"`
				} `json:"commits"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchCIRollup queries the GitHub GraphQL API for the status-check rollup of
// a pull request's head commit. A head commit without any checks yields a
// rollup in state "none".
//
// This is a supplementary data source. All error paths return nil and log a
// warning; failures never propagate to callers. A nil rollup is treated as
// unknown by the guideline evaluator, never as passing.
func (c *Client) FetchCIRollup(ctx context.Context, repoFullName string, prNumber int) *model.CIRollup {
	if c.token == "" {
		return nil
	}

	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil
	}

	reqBody := graphqlRequest{
		Query: ciRollupQuery,
		Variables: map[string]any{
			"owner": owner,
			"repo":  repo,
			"pr":    prNumber,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		slog.Warn("graphql: failed to marshal request", "error", err)
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		slog.Warn("graphql: failed to create request", "error", err)
		return nil
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.graphql.Do(httpReq)
	if err != nil {
		slog.Warn("graphql: request failed", "error", err, "repo", repoFullName, "pr", prNumber)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("graphql: non-200 response", "status", resp.StatusCode, "repo", repoFullName, "pr", prNumber)
		return nil
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		slog.Warn("graphql: failed to decode response", "error", err, "repo", repoFullName, "pr", prNumber)
		return nil
	}

	if len(gqlResp.Errors) > 0 {
		slog.Warn("graphql: response contains errors",
			"errors", gqlResp.Errors[0].Message,
			"repo", repoFullName,
			"pr", prNumber,
		)
		return nil
	}

	nodes := gqlResp.Data.Repository.PullRequest.Commits.Nodes
	if len(nodes) == 0 {
		return nil
	}

	rollup := nodes[0].Commit.StatusCheckRollup
	if rollup == nil {
		return &model.CIRollup{State: model.CIStateNone, Checks: []model.StatusCheck{}}
	}

	checks := make([]model.StatusCheck, 0, len(rollup.Contexts.Nodes))
	for _, n := range rollup.Contexts.Nodes {
		checks = append(checks, mapRollupContext(n))
	}

	return &model.CIRollup{
		State:  mapRollupState(rollup.State),
		Checks: checks,
	}
}

// mapRollupState maps GraphQL StatusState values to CIState.
func mapRollupState(state string) model.CIState {
	switch strings.ToUpper(state) {
	case "SUCCESS":
		return model.CIStateSuccess
	case "FAILURE":
		return model.CIStateFailure
	case "ERROR":
		return model.CIStateError
	case "PENDING", "EXPECTED":
		return model.CIStatePending
	default:
		return model.CIStateNone
	}
}

// mapRollupContext normalizes a status context or check run. A check run
// reports its conclusion once completed and its status before that.
func mapRollupContext(n rollupContext) model.StatusCheck {
	if n.Typename == "CheckRun" {
		state := n.Status
		if strings.EqualFold(n.Status, "COMPLETED") && n.Conclusion != "" {
			state = n.Conclusion
		}
		return model.StatusCheck{
			Name:  n.Name,
			State: strings.ToLower(state),
			URL:   n.DetailsURL,
		}
	}
	return model.StatusCheck{
		Name:  n.Context,
		State: strings.ToLower(n.State),
		URL:   n.TargetURL,
	}
}
