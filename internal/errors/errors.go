// Package errors provides coded application errors for the login pipeline.
// Every failure that ends a login attempt carries one of the Code values below
// so callers can decide whether a fresh attempt is worth starting.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Code classifies an AppError.
type Code int

const (
	Unknown Code = iota
	PortalUnreachable
	LayoutParseError
	MalformedCaptchaImage
	DigitDecodeAmbiguous
	KeypadPrimingFailed
	CredentialsRejected
	VendorUnreachable
	SecondFactorRequired
	InvalidLogin
	EmptyPassword
	BillParseError
	ConfigMissing
)

var codeNames = map[Code]string{
	Unknown:               "UNKNOWN",
	PortalUnreachable:     "PORTAL_UNREACHABLE",
	LayoutParseError:      "LAYOUT_PARSE_ERROR",
	MalformedCaptchaImage: "MALFORMED_CAPTCHA_IMAGE",
	DigitDecodeAmbiguous:  "DIGIT_DECODE_AMBIGUOUS",
	KeypadPrimingFailed:   "KEYPAD_PRIMING_FAILED",
	CredentialsRejected:   "CREDENTIALS_REJECTED",
	VendorUnreachable:     "VENDOR_UNREACHABLE",
	SecondFactorRequired:  "SECOND_FACTOR_REQUIRED",
	InvalidLogin:          "INVALID_LOGIN",
	EmptyPassword:         "EMPTY_PASSWORD",
	BillParseError:        "BILL_PARSE_ERROR",
	ConfigMissing:         "CONFIG_MISSING",
}

// String returns the upper snake case name of the code.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%s=%s", k, e.Metadata[k])
		}
		sb.WriteString("}")
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, " caused by: %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether a fresh login attempt may succeed where this one
// failed. Keypad layouts and digit assignments change on every attempt, so
// decode and priming failures are worth another go; rejected credentials and
// malformed input are not.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case PortalUnreachable, VendorUnreachable, MalformedCaptchaImage, DigitDecodeAmbiguous, KeypadPrimingFailed:
		return true
	default:
		return false
	}
}
