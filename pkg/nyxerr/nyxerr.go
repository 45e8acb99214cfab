// Package nyxerr defines the error kinds the release engine raises, each
// carrying the resolved field name(s) that produced the failure and an
// exit code.
package nyxerr

import "fmt"

// ExitCode is the process exit status a Kind maps to.
type ExitCode int

const (
	ExitSuccess           ExitCode = 0
	ExitGeneric           ExitCode = 1
	ExitConfiguration     ExitCode = 2
	ExitGit               ExitCode = 3
	ExitVersionRange      ExitCode = 4
	ExitPublicationFailed ExitCode = 5
)

// fieldError is the shared shape of every Nyx error kind: a message, the
// resolved configuration/state field names involved, and an optional cause.
type fieldError struct {
	kind   string
	msg    string
	fields []string
	cause  error
	code   ExitCode
}

func (e *fieldError) Error() string {
	if len(e.fields) == 0 {
		if e.cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
		}
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (fields: %v): %v", e.kind, e.msg, e.fields, e.cause)
	}
	return fmt.Sprintf("%s: %s (fields: %v)", e.kind, e.msg, e.fields)
}

func (e *fieldError) Unwrap() error { return e.cause }

// ExitCode returns the process exit status this error maps to.
func (e *fieldError) ExitCode() ExitCode { return e.code }

// Fields returns the resolved field names implicated in the failure.
func (e *fieldError) Fields() []string { return e.fields }

// ConfigurationError indicates invalid or missing required configuration.
type ConfigurationError struct{ *fieldError }

// NewConfigurationError builds a ConfigurationError for the given fields.
func NewConfigurationError(msg string, cause error, fields ...string) *ConfigurationError {
	return &ConfigurationError{&fieldError{kind: "ConfigurationError", msg: msg, fields: fields, cause: cause, code: ExitConfiguration}}
}

// GitError indicates a repository open/resolve/walk/commit/tag/push failure.
type GitError struct{ *fieldError }

// NewGitError builds a GitError.
func NewGitError(msg string, cause error, fields ...string) *GitError {
	return &GitError{&fieldError{kind: "GitError", msg: msg, fields: fields, cause: cause, code: ExitGit}}
}

// VersionRangeError indicates the inferred version violates the active range.
type VersionRangeError struct{ *fieldError }

// NewVersionRangeError builds a VersionRangeError.
func NewVersionRangeError(msg string, fields ...string) *VersionRangeError {
	return &VersionRangeError{&fieldError{kind: "VersionRangeError", msg: msg, fields: fields, code: ExitVersionRange}}
}

// TemplateError indicates a malformed template.
type TemplateError struct{ *fieldError }

// NewTemplateError builds a TemplateError.
func NewTemplateError(msg string, cause error, fields ...string) *TemplateError {
	return &TemplateError{&fieldError{kind: "TemplateError", msg: msg, fields: fields, cause: cause, code: ExitGeneric}}
}

// ServiceError indicates a hosting-provider HTTP/protocol failure. It is
// non-fatal across services but fatal within one.
type ServiceError struct {
	*fieldError
	Service string
}

// NewServiceError builds a ServiceError for the named hosting service.
func NewServiceError(service, msg string, cause error, fields ...string) *ServiceError {
	return &ServiceError{
		fieldError: &fieldError{kind: "ServiceError", msg: msg, fields: fields, cause: cause, code: ExitPublicationFailed},
		Service:    service,
	}
}

// SecurityError indicates missing or rejected credentials.
type SecurityError struct{ *fieldError }

// NewSecurityError builds a SecurityError.
func NewSecurityError(msg string, cause error, fields ...string) *SecurityError {
	return &SecurityError{&fieldError{kind: "SecurityError", msg: msg, fields: fields, cause: cause, code: ExitGeneric}}
}

// IOError indicates a state/changelog persistence failure.
type IOError struct{ *fieldError }

// NewIOError builds an IOError.
func NewIOError(msg string, cause error, fields ...string) *IOError {
	return &IOError{&fieldError{kind: "IOError", msg: msg, fields: fields, cause: cause, code: ExitGeneric}}
}

// UnsupportedOperationError indicates a hosting provider was asked for a
// capability it does not declare.
type UnsupportedOperationError struct{ *fieldError }

// NewUnsupportedOperationError builds an UnsupportedOperationError.
func NewUnsupportedOperationError(msg string, fields ...string) *UnsupportedOperationError {
	return &UnsupportedOperationError{&fieldError{kind: "UnsupportedOperationError", msg: msg, fields: fields, code: ExitGeneric}}
}

// CodeOf inspects err for a known Nyx error kind and returns its exit code,
// or ExitGeneric if err is non-nil but not a recognized kind, or
// ExitSuccess if err is nil.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	type coder interface{ ExitCode() ExitCode }
	if c, ok := err.(coder); ok {
		return c.ExitCode()
	}
	return ExitGeneric
}
