// Package errors provides the structured error taxonomy for the ABC login
// core (§6, §7): a CoreError carrying a machine-readable code, a
// human-readable message, and an exit code, plus helpers to wrap and
// inspect errors across component boundaries.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for CLI consumers of the core.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitInput      = 2
	ExitAuth       = 3
	ExitNotFound   = 4
	ExitPermission = 5
)

// CoreError is the structured error type used throughout the ABC login
// core. It replaces the C source's `cc`/`goto exit` result-code pattern
// (§9) with an explicit, wrappable error value.
type CoreError struct {
	Code       string
	Message    string
	Details    map[string]string
	Suggestion string
	Cause      error
	ExitCode   int
}

func (e *CoreError) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is compares by Code so a wrapped CoreError still matches its sentinel.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors — the §6/§7 taxonomy.
var (
	ErrGeneral = &CoreError{Code: "ERROR", Message: "an error occurred", ExitCode: ExitGeneral}

	ErrNULLPtr = &CoreError{Code: "NULL_PTR", Message: "required value was nil", ExitCode: ExitGeneral}

	ErrNoAvailAccountSpace = &CoreError{
		Code: "NO_AVAIL_ACCOUNT_SPACE", Message: "no available account slots", ExitCode: ExitGeneral,
	}

	ErrAccountAlreadyExists = &CoreError{
		Code: "ACCOUNT_ALREADY_EXISTS", Message: "account already exists", ExitCode: ExitInput,
	}

	ErrAccountDoesNotExist = &CoreError{
		Code: "ACCOUNT_DOES_NOT_EXIST", Message: "account does not exist", ExitCode: ExitNotFound,
	}

	ErrBadPassword = &CoreError{Code: "BAD_PASSWORD", Message: "invalid password", ExitCode: ExitAuth}

	ErrInvalidAnswers = &CoreError{
		Code: "INVALID_ANSWERS", Message: "invalid recovery answers", ExitCode: ExitAuth,
	}

	ErrNoRecoveryQuestions = &CoreError{
		Code: "NO_RECOVERY_QUESTIONS", Message: "no recovery questions set for this account", ExitCode: ExitNotFound,
	}

	ErrNotSupported = &CoreError{Code: "NOT_SUPPORTED", Message: "operation not supported", ExitCode: ExitInput}

	ErrDecryptError = &CoreError{Code: "DECRYPT_ERROR", Message: "decryption failed", ExitCode: ExitGeneral}

	ErrDecryptBadChecksum = &CoreError{
		Code: "DECRYPT_BAD_CHECKSUM", Message: "decryption integrity check failed", ExitCode: ExitAuth,
	}

	ErrEncryptError = &CoreError{Code: "ENCRYPT_ERROR", Message: "encryption failed", ExitCode: ExitGeneral}

	ErrScryptError = &CoreError{Code: "SCRYPT_ERROR", Message: "scrypt parameter rejection", ExitCode: ExitGeneral}

	ErrJSONError = &CoreError{Code: "JSON_ERROR", Message: "malformed JSON", ExitCode: ExitGeneral}

	ErrFileOpenError = &CoreError{Code: "FILE_OPEN_ERROR", Message: "could not open file", ExitCode: ExitGeneral}

	ErrFileReadError = &CoreError{Code: "FILE_READ_ERROR", Message: "could not read file", ExitCode: ExitGeneral}

	ErrFileWriteError = &CoreError{Code: "FILE_WRITE_ERROR", Message: "could not write file", ExitCode: ExitGeneral}

	ErrFileDoesNotExist = &CoreError{
		Code: "FILE_DOES_NOT_EXIST", Message: "file does not exist", ExitCode: ExitNotFound,
	}

	ErrServerError = &CoreError{Code: "SERVER_ERROR", Message: "login server returned an error", ExitCode: ExitGeneral}

	ErrConnectionError = &CoreError{
		Code: "CONNECTION_ERROR", Message: "could not reach login server", ExitCode: ExitGeneral,
	}

	ErrURLError = &CoreError{Code: "URL_ERROR", Message: "invalid server URL", ExitCode: ExitInput}

	ErrReinitialization = &CoreError{
		Code: "REINITIALIZATION", Message: "core already initialized", ExitCode: ExitGeneral,
	}

	ErrNotInitialized = &CoreError{Code: "NOT_INITIALIZED", Message: "core not initialized", ExitCode: ExitGeneral}

	ErrMutexError = &CoreError{Code: "MUTEX_ERROR", Message: "account lock error", ExitCode: ExitGeneral}
)

// New creates a CoreError with the given code and message.
func New(code, message string) *CoreError {
	return &CoreError{Code: code, Message: message, ExitCode: ExitGeneral}
}

// Wrap adds context to err, preserving its CoreError code/details/
// suggestion/exit-code when present.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *CoreError
	if errors.As(err, &ce) {
		return &CoreError{
			Code:       ce.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      err,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoreError{Code: "ERROR", Message: msg, Cause: err, ExitCode: ExitGeneral}
}

// WithDetails attaches structured detail fields to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *CoreError
	if errors.As(err, &ce) {
		return &CoreError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoreError{Code: "ERROR", Message: err.Error(), Details: details, Cause: err, ExitCode: ExitGeneral}
}

// WithSuggestion attaches an actionable suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *CoreError
	if errors.As(err, &ce) {
		return &CoreError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CoreError{Code: "ERROR", Message: err.Error(), Suggestion: suggestion, Cause: err, ExitCode: ExitGeneral}
}

// ExitCode returns the CLI exit code for an error, ExitSuccess for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}
	return ExitGeneral
}

// Code returns the machine-readable code for an error.
func Code(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "ERROR"
}

// Is wraps errors.Is for convenience at call sites that already import
// this package under an alias.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
