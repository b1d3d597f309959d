package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Numeric response codes shared with clients.
const (
	CodeOK                    = 2000
	CodeCreated               = 2001
	CodeBadImage              = 4000
	CodeImageUploadFailed     = 4100
	CodeRateLimited           = 4290
	CodeServerError           = 5000
	CodeInvalidToken          = 7001
	CodeRequiredParamsMissing = 8000
	CodeUnknownQuestion       = 8001
	CodeUnknownTab            = 8003
	CodeUnknownCategory       = 8004
	CodeInvalidData           = 8100
)

// ErrorKind is the closed set of error outcomes an endpoint can report.
type ErrorKind int

const (
	KindServerError ErrorKind = iota
	KindInvalidData
	KindRequiredParamsMissing
	KindUnknownTab
	KindUnknownCategory
	KindUnknownQuestion
	KindBadImage
	KindImageUploadFailed
	KindInvalidToken
	KindRateLimited
)

type kindInfo struct {
	status  int
	code    int
	message string
}

var kinds = map[ErrorKind]kindInfo{
	KindServerError:           {http.StatusInternalServerError, CodeServerError, "Internal server error"},
	KindInvalidData:           {http.StatusBadRequest, CodeInvalidData, "Some fields are invalid"},
	KindRequiredParamsMissing: {http.StatusBadRequest, CodeRequiredParamsMissing, "Required parameters are missing"},
	KindUnknownTab:            {http.StatusNotFound, CodeUnknownTab, "Tab is unknown"},
	KindUnknownCategory:       {http.StatusNotFound, CodeUnknownCategory, "Category is unknown"},
	KindUnknownQuestion:       {http.StatusNotFound, CodeUnknownQuestion, "Question with specified id was not found"},
	KindBadImage:              {http.StatusBadRequest, CodeBadImage, "Image is invalid"},
	KindImageUploadFailed:     {http.StatusInternalServerError, CodeImageUploadFailed, "Failed to upload image"},
	KindInvalidToken:          {http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token"},
	KindRateLimited:           {http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later"},
}

// Status is the HTTP status class for the kind.
func (k ErrorKind) Status() int { return kinds[k].status }

// Code is the stable numeric code for the kind.
func (k ErrorKind) Code() int { return kinds[k].code }

// Message is the default client-facing message for the kind.
func (k ErrorKind) Message() string { return kinds[k].message }

// AppError represents a custom application error
type AppError struct {
	Kind    ErrorKind
	Message string
	// Fields names every offending input field for validation kinds.
	Fields []string
	Err    error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Message()
	}
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s %v", msg, e.Fields)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an error of the given kind with an optional message override.
func NewAppError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// NewValidationError reports invalid input fields.
func NewValidationError(message string, fields ...string) *AppError {
	return &AppError{Kind: KindInvalidData, Message: message, Fields: fields}
}

// NewRequiredParamsError reports missing required input fields.
func NewRequiredParamsError(fields ...string) *AppError {
	return &AppError{Kind: KindRequiredParamsMissing, Fields: fields}
}

// NewInternalError wraps an unexpected failure as a server error. The
// cause is kept for logs and never rendered.
func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindServerError, Err: err}
}

// AsAppError unwraps err into an *AppError when it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
