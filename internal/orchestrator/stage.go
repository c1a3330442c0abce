package orchestrator

import "codeberg.org/snonux/parlo/internal/translation"

// Stage is the lifecycle position of one request.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageDispatching Stage = "dispatching"
	StageFallingBack Stage = "falling_back"
	StageSucceeded   Stage = "succeeded"
	StageFailed      Stage = "failed"
)

// Transition is reported to Options.OnTransition for every stage change.
type Transition struct {
	RequestID string
	From      Stage
	To        Stage
	// Path is the path being run (Dispatching, FallingBack) or the one that
	// produced the result (Succeeded). Empty for rejected requests.
	Path translation.Path
	Err  error
}
