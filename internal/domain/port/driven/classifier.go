package driven

import (
	"context"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// LabelClassifier defines the driven port for an external text classifier
// that reads an item's free text and suggests a taxonomy label. A zero
// LabelHint means "no suggestion".
type LabelClassifier interface {
	Classify(ctx context.Context, item model.Item, policy model.Policy) (model.LabelHint, error)
}
