package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/triagebot/internal/adapter/driven/openai"
	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *openai.Classifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openai.NewClassifier("test-key", "gpt-4o-mini", server.URL+"/v1")
}

func testPolicy() model.Policy {
	return model.Policy{
		Repo: "octo/widgets",
		Taxonomy: model.Taxonomy{
			{Label: "infrastructure", Owner: "platform", Description: "CI and build tooling"},
			{Label: "bug"},
		},
		Contributing: "Please describe your change.",
	}
}

func testItem() model.Item {
	return model.Item{
		Number:    42,
		RepoOwner: "octo",
		RepoName:  "widgets",
		Kind:      model.ItemKindPullRequest,
		Title:     "Speed up CI",
		Body:      "<p>Caches <b>modules</b></p>",
		Files:     []model.FileChange{{Path: ".github/workflows/ci.yml", Status: "modified", Additions: 3}},
		Commits:   []model.Commit{{Message: "Cache modules\n\nLonger text"}},
	}
}

func TestClassify(t *testing.T) {
	var got chatRequest
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"label":"infrastructure","confidence":0.82,"reason":"workflow change"}`))
	})

	hint, err := c.Classify(context.Background(), testItem(), testPolicy())
	require.NoError(t, err)

	assert.Equal(t, model.LabelHint{Label: "infrastructure", Confidence: 0.82, Reason: "workflow change"}, hint)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[0].Content, "- infrastructure (owner: platform): CI and build tooling")
	assert.Contains(t, got.Messages[0].Content, "Please describe your change.")
	assert.Contains(t, got.Messages[1].Content, "Pull request #42: Speed up CI")
	assert.Contains(t, got.Messages[1].Content, "Caches modules")
	assert.NotContains(t, got.Messages[1].Content, "<b>")
	assert.Contains(t, got.Messages[1].Content, "- .github/workflows/ci.yml (modified, +3 -0)")
	assert.Contains(t, got.Messages[1].Content, "- Cache modules\n")
	assert.NotContains(t, got.Messages[1].Content, "Longer text")
}

func TestClassify_ToleratesWrappedJSON(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Sure:\n```json\n{\"label\":\"bug\",\"confidence\":1.7}\n```"))
	})

	hint, err := c.Classify(context.Background(), testItem(), testPolicy())
	require.NoError(t, err)
	assert.Equal(t, "bug", hint.Label)
	assert.InDelta(t, 1.0, hint.Confidence, 1e-9, "confidence is clamped")
}

func TestClassify_GarbageOutput(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("I am not sure."))
	})

	_, err := c.Classify(context.Background(), testItem(), testPolicy())
	require.Error(t, err)
}

func TestClassify_NoChoices(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Classify(context.Background(), testItem(), testPolicy())
	require.ErrorIs(t, err, openai.ErrNoChoices)
}

func TestClassify_APIError(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	})

	_, err := c.Classify(context.Background(), testItem(), testPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
