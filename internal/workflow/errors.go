package workflow

import "errors"

// Error kinds signalled by the controller. Match with errors.Is.
var (
	ErrInvalidFileType      = errors.New("invalid file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrNoFileSelected       = errors.New("no file selected")
	ErrRequestFailed        = errors.New("request failed")
	ErrClipboardUnavailable = errors.New("clipboard unavailable")

	ErrNoResult             = errors.New("no result available")
	ErrWrongState           = errors.New("operation not allowed in current view")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrAbandoned            = errors.New("submission abandoned")
)

// Error carries the localized message shown to the user alongside the kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
