package classify

import (
	"errors"
	"fmt"
)

// Task names carried by errors.
const (
	TaskClassifyFeedback = "classify_feedback"
	TaskAnalyzeSignal    = "analyze_signal"
	TaskGenerateBrief    = "generate_brief"
)

// ErrNoProvider is wrapped when the gateway has no LLM provider.
var ErrNoProvider = errors.New("no LLM provider configured")

// ValidationError means caller input violated a precondition. No external
// call was made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ClassificationError means the LLM call failed. StatusCode is the upstream
// HTTP status, or 0 when the request never got an answer.
type ClassificationError struct {
	Task       string
	StatusCode int
	Body       string
	Err        error
}

func (e *ClassificationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: LLM API returned %d", e.Task, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ParseError means the LLM answered but the content was not the expected JSON.
type ParseError struct {
	Task    string
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed LLM response: %v", e.Task, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
