package feeder

import "errors"

// Errors returned or recorded by the feeders.
var (
	// ErrTopicCreation indicates that a new grammar topic could not be created,
	// either because its metadata could not be generated or because the topic
	// insert failed. The whole topic unit is rolled back.
	ErrTopicCreation = errors.New("topic creation failed")

	// ErrMissingDependency is returned by constructors given a nil collaborator.
	ErrMissingDependency = errors.New("missing feeder dependency")
)

// Terminal reasons recorded on skipped and failed runs.
const (
	ReasonNoGaps           = "no gaps found"
	ReasonGenerationFailed = "AI generation failed"
)
