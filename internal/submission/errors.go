package submission

import "fmt"

// AudioProcessingError reports a failure to turn a submission into links.
// The message is shown to the admin; the cause is only logged.
type AudioProcessingError struct {
	Reason string
	Cause  error
}

func (e *AudioProcessingError) Error() string {
	return e.Reason
}

func (e *AudioProcessingError) Unwrap() error {
	return e.Cause
}

// Outcome classifies the failure for handler summaries.
func (e *AudioProcessingError) Outcome() string {
	return "fail"
}

const (
	reasonNoLink   = "no valid link found"
	reasonUpstream = "upstream error"
)

func errNoLink() error {
	return &AudioProcessingError{Reason: reasonNoLink}
}

func errUpstream(cause error) error {
	return &AudioProcessingError{Reason: reasonUpstream, Cause: fmt.Errorf("resolve: %w", cause)}
}
