package models

import (
	"errors"
	"fmt"
)

// User-facing messages shared by the dispatcher and the web form.
const (
	MsgEmptyTopic   = "Please enter a blog topic."
	MsgMissingMedia = "Please upload a file or record audio for the selected input type."

	// GenerationErrorPrefix starts every rendered GenerationError.
	GenerationErrorPrefix = "An error occurred: "
)

// ValidationError is a problem with the user's input, detected before any service call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrMissingMedia is returned when the mode needs a file or transcript that was not supplied.
var ErrMissingMedia = NewValidationError("media", MsgMissingMedia)

// GenerationError wraps a failed call to the generation service.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return GenerationErrorPrefix + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// TranscriptionFailure classifies a TranscriptionError.
type TranscriptionFailure int

const (
	// FailureProcessing covers conversion and any unexpected error.
	FailureProcessing TranscriptionFailure = iota
	// FailureUnintelligible means the service returned no transcript.
	FailureUnintelligible
	// FailureRequest means the service could not be reached or rejected the call.
	FailureRequest
)

// TranscriptionError is a failed speech-to-text attempt.
type TranscriptionError struct {
	Kind    TranscriptionFailure
	Service string
	Err     error
}

func (e *TranscriptionError) Error() string {
	switch e.Kind {
	case FailureUnintelligible:
		return fmt.Sprintf("%s could not understand the audio.", e.Service)
	case FailureRequest:
		return fmt.Sprintf("Could not request results from %s; %v", e.Service, e.Err)
	default:
		return fmt.Sprintf("An error occurred during audio processing: %v", e.Err)
	}
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ErrUnintelligible is returned by transcribers when the audio produced no text.
var ErrUnintelligible = errors.New("audio could not be understood")

// RequestError marks a transport or API failure talking to an external service.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// GenerationResult is either generated text or an error, never both.
type GenerationResult struct {
	Text string
	Err  error
}

// OK reports whether the result holds text.
func (r GenerationResult) OK() bool { return r.Err == nil }

// String renders the result for display.
func (r GenerationResult) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Text
}

// TranscriptionResult is either a transcript or an error.
type TranscriptionResult struct {
	Transcript string
	Err        error
}

// OK reports whether the result holds a transcript.
func (r TranscriptionResult) OK() bool { return r.Err == nil }

// String renders the result for display.
func (r TranscriptionResult) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Transcript
}

// Outcome labels a result for metrics and logs.
func Outcome(err error) string {
	var (
		ve *ValidationError
		ge *GenerationError
		te *TranscriptionError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "validation_error"
	case errors.As(err, &ge):
		return "generation_error"
	case errors.As(err, &te):
		return "transcription_error"
	default:
		return "error"
	}
}
