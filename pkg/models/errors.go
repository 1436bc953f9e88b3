package models

import "fmt"

// Kind is the closed taxonomy of runtime failure categories (spec §7).
// Component packages return *RuntimeError rather than bespoke error types
// so callers at the API/connector boundary can map a single switch onto
// HTTP status / gRPC code / retry policy.
type Kind string

const (
	KindValidationFailure      Kind = "ValidationFailure"
	KindAuthorizationFailure   Kind = "AuthorizationFailure"
	KindPolicyRejection        Kind = "PolicyRejection"
	KindThresholdPending       Kind = "ThresholdPending"
	KindHumanApprovalRequired  Kind = "HumanApprovalRequired"
	KindTimeout                Kind = "Timeout"
	KindIntegrityFailure       Kind = "IntegrityFailure"
	KindExhaustionFailure      Kind = "ExhaustionFailure"
	KindInternalFailure        Kind = "InternalFailure"
)

// RuntimeError is the one error type every component package returns.
type RuntimeError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, &RuntimeError{Kind: KindX}) match on Kind alone.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewRuntimeError(kind Kind, message string) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message}
}

func WrapRuntimeError(kind Kind, message string, cause error) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message, Cause: cause}
}

// Retryable reports whether the Connector boundary should retry this error
// class (spec §7: Timeout and InternalFailure are the retryable kinds).
func (e *RuntimeError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindInternalFailure
}
