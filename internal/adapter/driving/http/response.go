package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RunResponse is the JSON representation of one triage run.
type RunResponse struct {
	ID            string           `json:"id"`
	Repo          string           `json:"repo"`
	Number        int              `json:"number"`
	Decision      string           `json:"decision"`
	Reason        string           `json:"reason,omitempty"`
	Label         string           `json:"label,omitempty"`
	Comment       string           `json:"comment,omitempty"`
	Outstanding   []string         `json:"outstanding"`
	LabelApplied  bool             `json:"label_applied"`
	CommentPosted bool             `json:"comment_posted"`
	DryRun        bool             `json:"dry_run"`
	Error         string           `json:"error,omitempty"`
	StartedAt     string           `json:"started_at"`
	DurationMs    int64            `json:"duration_ms"`
	Actions       []ActionResponse `json:"actions,omitempty"`
}

// ActionResponse reports one executed side effect.
type ActionResponse struct {
	Action string `json:"action"`
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// PolicyResponse is the JSON representation of the policy in effect for a repository.
type PolicyResponse struct {
	Repo          string             `json:"repo"`
	BotMarker     string             `json:"bot_marker"`
	Approval      string             `json:"approval"`
	MinConfidence float64            `json:"min_confidence"`
	IgnoreAuthors []string           `json:"ignore_authors"`
	Sections      []SectionResponse  `json:"sections"`
	Labels        []CategoryResponse `json:"labels"`
}

// SectionResponse describes one guideline section.
type SectionResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Kind        string   `json:"kind"`
	Description string   `json:"description,omitempty"`
	Heading     string   `json:"heading,omitempty"`
	Check       string   `json:"check,omitempty"`
	AppliesTo   []string `json:"applies_to,omitempty"`
}

// CategoryResponse describes one taxonomy entry.
type CategoryResponse struct {
	Label       string   `json:"label"`
	Owner       string   `json:"owner,omitempty"`
	Description string   `json:"description,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

func toRunResponse(run model.TriageRun) RunResponse {
	outstanding := run.Outstanding
	if outstanding == nil {
		outstanding = []string{}
	}

	resp := RunResponse{
		ID:            run.ID,
		Repo:          run.Repo,
		Number:        run.Number,
		Decision:      string(run.Decision),
		Reason:        run.Reason,
		Label:         run.Label,
		Comment:       run.Comment,
		Outstanding:   outstanding,
		LabelApplied:  run.LabelApplied,
		CommentPosted: run.CommentPosted,
		DryRun:        run.DryRun,
		Error:         run.Error,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		DurationMs:    run.Duration.Milliseconds(),
	}

	for _, a := range run.Actions {
		ar := ActionResponse{Action: string(a.Action), Target: a.Target, OK: a.Succeeded()}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		resp.Actions = append(resp.Actions, ar)
	}

	return resp
}

func toPolicyResponse(p model.Policy) PolicyResponse {
	ignore := p.IgnoreAuthors
	if ignore == nil {
		ignore = []string{}
	}

	resp := PolicyResponse{
		Repo:          p.Repo,
		BotMarker:     p.Marker(),
		Approval:      string(p.Approval),
		MinConfidence: p.MinConfidence,
		IgnoreAuthors: ignore,
		Sections:      make([]SectionResponse, 0, len(p.Sections)),
		Labels:        make([]CategoryResponse, 0, len(p.Taxonomy)),
	}

	for _, s := range p.Sections {
		sr := SectionResponse{
			ID:          s.ID,
			Title:       s.Title,
			Kind:        string(s.Kind),
			Description: s.Description,
			Heading:     s.Heading,
			Check:       s.Check,
		}
		for _, k := range s.AppliesTo {
			sr.AppliesTo = append(sr.AppliesTo, string(k))
		}
		resp.Sections = append(resp.Sections, sr)
	}

	for _, c := range p.Taxonomy {
		resp.Labels = append(resp.Labels, CategoryResponse{
			Label:       c.Label,
			Owner:       c.Owner,
			Description: c.Description,
			Paths:       c.Paths,
			Keywords:    c.Keywords,
		})
	}

	return resp
}
