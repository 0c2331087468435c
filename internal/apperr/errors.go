package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the workflow must react to it
type Kind string

const (
	// KindValidation blocks a local transition; never sent over the wire
	KindValidation Kind = "VALIDATION_ERROR"
	// KindProtocol means the service response is missing required fields
	KindProtocol Kind = "PROTOCOL_ERROR"
	// KindSubmission means a start request failed
	KindSubmission Kind = "SUBMISSION_ERROR"
	// KindStop means a stop request was refused or failed
	KindStop Kind = "STOP_ERROR"
	// KindPollFailure ends a job's status polling loop
	KindPollFailure Kind = "POLL_FAILURE"
	// KindJobAlreadyActive rejects a second start while a job is live
	KindJobAlreadyActive Kind = "JOB_ALREADY_ACTIVE"
	// KindIndexOutOfRange is an invalid list position
	KindIndexOutOfRange Kind = "INDEX_OUT_OF_RANGE"
	// KindEmptyInput rejects an export with no records
	KindEmptyInput Kind = "EMPTY_INPUT"
	// KindRemote is any other failed call to the service
	KindRemote Kind = "REMOTE_ERROR"
)

// Sentinels for errors.Is matching on kind
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrProtocol         = &Error{Kind: KindProtocol}
	ErrSubmission       = &Error{Kind: KindSubmission}
	ErrStop             = &Error{Kind: KindStop}
	ErrPollFailure      = &Error{Kind: KindPollFailure}
	ErrJobAlreadyActive = &Error{Kind: KindJobAlreadyActive}
	ErrIndexOutOfRange  = &Error{Kind: KindIndexOutOfRange}
	ErrEmptyInput       = &Error{Kind: KindEmptyInput}
	ErrRemote           = &Error{Kind: KindRemote}
)

// Error is the structured error used across the workflow
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetails adds diagnostic context to the error
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps err with kind and message
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Protocol(message string) *Error {
	return New(KindProtocol, message)
}

func Submission(err error) *Error {
	return Wrap(err, KindSubmission, "failed to start training")
}

func Stop(message string, err error) *Error {
	return Wrap(err, KindStop, message)
}

func PollFailure(jobID string, err error) *Error {
	return Wrap(err, KindPollFailure, "failed to get training status").WithDetails("job_id", jobID)
}

func JobAlreadyActive(jobID string) *Error {
	return New(KindJobAlreadyActive, fmt.Sprintf("training job %s is still active", jobID)).WithDetails("job_id", jobID)
}

func IndexOutOfRange(index, length int) *Error {
	return New(KindIndexOutOfRange, fmt.Sprintf("index %d out of range [0,%d)", index, length)).
		WithDetails("index", index).
		WithDetails("length", length)
}

func EmptyInput(message string) *Error {
	return New(KindEmptyInput, message)
}

func Remote(err error, message string) *Error {
	return Wrap(err, KindRemote, message)
}

// KindOf extracts the kind from an error chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders the text shown to the user for err
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindValidation, KindEmptyInput, KindJobAlreadyActive:
		return e.Message
	case KindProtocol:
		return fmt.Sprintf("Invalid response from server: %s", e.Message)
	case KindSubmission:
		return fmt.Sprintf("Failed to start training. Please try again. (%v)", e.Err)
	case KindStop:
		if e.Err != nil {
			return fmt.Sprintf("Failed to stop training: %s (%v)", e.Message, e.Err)
		}
		return fmt.Sprintf("Failed to stop training: %s", e.Message)
	case KindPollFailure:
		return fmt.Sprintf("Lost track of training status (%v). The last known state is shown.", e.Err)
	default:
		return e.Error()
	}
}
