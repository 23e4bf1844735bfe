// Package openai implements the LabelClassifier port with an OpenAI-compatible
// chat completion model.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	oa "github.com/sashabaranov/go-openai"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LabelClassifier = (*Classifier)(nil)

const (
	requestTimeout = 30 * time.Second
	maxBodyLen     = 4000
	maxDiffLen     = 6000
	maxGuideLen    = 4000
)

// ErrNoChoices is returned when the model answers without a completion.
var ErrNoChoices = errors.New("model returned no choices")

// Classifier asks a chat model which taxonomy label fits an item.
type Classifier struct {
	client *oa.Client
	model  string
	strip  *bluemonday.Policy
}

// NewClassifier creates a Classifier. An empty baseURL selects the OpenAI API.
func NewClassifier(apiKey, modelName, baseURL string) *Classifier {
	cfg := oa.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Classifier{
		client: oa.NewClientWithConfig(cfg),
		model:  modelName,
		strip:  bluemonday.StrictPolicy(),
	}
}

// classification is the JSON object the model is asked to return.
type classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Classify returns the model's label suggestion. The hint is advisory: the
// engine only accepts it for taxonomy members above the policy's confidence
// floor.
func (c *Classifier) Classify(ctx context.Context, item model.Item, policy model.Policy) (model.LabelHint, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, oa.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   200,
		ResponseFormat: &oa.ChatCompletionResponseFormat{
			Type: oa.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []oa.ChatCompletionMessage{
			{Role: oa.ChatMessageRoleSystem, Content: systemPrompt(policy)},
			{Role: oa.ChatMessageRoleUser, Content: c.itemPrompt(item)},
		},
	})
	if err != nil {
		return model.LabelHint{}, fmt.Errorf("classifying %s#%d: %w", item.RepoFullName(), item.Number, err)
	}
	if len(resp.Choices) == 0 {
		return model.LabelHint{}, ErrNoChoices
	}

	out, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		return model.LabelHint{}, fmt.Errorf("classifying %s#%d: %w", item.RepoFullName(), item.Number, err)
	}

	return model.LabelHint{
		Label:      strings.TrimSpace(out.Label),
		Confidence: min(max(out.Confidence, 0), 1),
		Reason:     out.Reason,
	}, nil
}

func systemPrompt(policy model.Policy) string {
	var b strings.Builder
	b.WriteString("You label pull requests and issues for the repository ")
	b.WriteString(policy.Repo)
	b.WriteString(".\nPick exactly one label from the list below, or an empty label if none clearly fits.\n\nLabels:\n")
	for _, c := range policy.Taxonomy {
		b.WriteString("- ")
		b.WriteString(c.Label)
		if c.Owner != "" {
			b.WriteString(" (owner: " + c.Owner + ")")
		}
		if c.Description != "" {
			b.WriteString(": " + c.Description)
		}
		b.WriteString("\n")
	}
	if policy.Contributing != "" {
		b.WriteString("\nContribution guide excerpt:\n")
		b.WriteString(truncate(policy.Contributing, maxGuideLen))
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with a JSON object: {\"label\": string, \"confidence\": number between 0 and 1, \"reason\": string}.")
	return b.String()
}

func (c *Classifier) itemPrompt(item model.Item) string {
	var b strings.Builder
	kind := "Issue"
	if item.IsPullRequest() {
		kind = "Pull request"
	}
	fmt.Fprintf(&b, "%s #%d: %s\n\n", kind, item.Number, item.Title)
	b.WriteString(truncate(strings.TrimSpace(c.strip.Sanitize(item.Body)), maxBodyLen))
	b.WriteString("\n")

	if len(item.Files) > 0 {
		b.WriteString("\nChanged files:\n")
		for _, f := range item.Files {
			fmt.Fprintf(&b, "- %s (%s, +%d -%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
		}
	}
	if len(item.Commits) > 0 {
		b.WriteString("\nCommits:\n")
		for _, cm := range item.Commits {
			subject, _, _ := strings.Cut(cm.Message, "\n")
			b.WriteString("- " + subject + "\n")
		}
	}
	if item.Diff != "" {
		b.WriteString("\nDiff:\n")
		b.WriteString(truncate(item.Diff, maxDiffLen))
	}
	return b.String()
}

// parseClassification decodes the model output, tolerating prose or code
// fences around the JSON object.
func parseClassification(raw string) (classification, error) {
	var out classification
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return classification{}, fmt.Errorf("no JSON object in model output %q", truncate(raw, 80))
	}
	if err := json.Unmarshal([]byte(raw[first:last+1]), &out); err != nil {
		return classification{}, fmt.Errorf("decoding model output: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
