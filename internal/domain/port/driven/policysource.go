package driven

import "github.com/ericfisherdev/triagebot/internal/domain/model"

// PolicySource defines the driven port for per-repository triage configuration.
// Load returns an error wrapping model.ErrConfigurationMissing when no policy
// exists for the repository; implementations must not fall back to another
// repository's policy.
type PolicySource interface {
	Load(repoFullName string) (*model.Policy, error)
}
