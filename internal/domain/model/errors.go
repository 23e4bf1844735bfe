package model

import "errors"

// Sentinel errors shared by the engine, the application layer and adapters.
var (
	// ErrConfigurationMissing indicates no usable guideline document or label
	// taxonomy exists for the target repository. No decision is made and no
	// default action is taken.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrPreconditionViolation indicates an action that must never be taken,
	// such as applying a label outside the taxonomy or acting on a closed item.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrItemNotFound indicates the requested pull request or issue does not exist.
	ErrItemNotFound = errors.New("item not found")
)
