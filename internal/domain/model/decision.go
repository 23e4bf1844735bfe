package model

// DecisionKind is the shape of the action directive produced by the engine.
type DecisionKind string

const (
	DecisionSkip            DecisionKind = "skip"
	DecisionComment         DecisionKind = "comment"
	DecisionLabel           DecisionKind = "label"
	DecisionLabelAndComment DecisionKind = "label_and_comment"
)

// Reasons attached to skip decisions.
const (
	SkipClosed         = "item closed"
	SkipAlreadyLabeled = "already labeled"
	SkipHumanInvolved  = "human involved"
	SkipDuplicate      = "comment already posted for outstanding sections"
	SkipNoConfidentFit = "no confident label"
)

// Decision is the terminal output of one engine invocation. It carries at
// most one label and at most one comment.
type Decision struct {
	Kind    DecisionKind
	Reason  string // Skip reason, or a short note on why the action was chosen.
	Label   string
	Comment string

	// Verdict is the guideline evaluation the decision was based on. It is
	// nil when the engine stopped before evaluating.
	Verdict *Verdict
}

// Skip builds a Skip decision.
func Skip(reason string) Decision {
	return Decision{Kind: DecisionSkip, Reason: reason}
}

// CommentOnly builds a Comment decision.
func CommentOnly(text string) Decision {
	return Decision{Kind: DecisionComment, Comment: text}
}

// LabelOnly builds a Label decision.
func LabelOnly(name string) Decision {
	return Decision{Kind: DecisionLabel, Label: name}
}

// LabelAndComment builds a LabelAndComment decision.
func LabelAndComment(name, text string) Decision {
	return Decision{Kind: DecisionLabelAndComment, Label: name, Comment: text}
}

// HasLabel reports whether the decision applies a label.
func (d Decision) HasLabel() bool {
	return d.Kind == DecisionLabel || d.Kind == DecisionLabelAndComment
}

// HasComment reports whether the decision posts a comment.
func (d Decision) HasComment() bool {
	return d.Kind == DecisionComment || d.Kind == DecisionLabelAndComment
}

// IsSkip reports whether the decision takes no action.
func (d Decision) IsSkip() bool {
	return d.Kind == DecisionSkip
}
