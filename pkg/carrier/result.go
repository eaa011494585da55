package carrier

import (
	"encoding/json"
	"fmt"
)

// FailureKind classifies why a carrier call did not succeed.
type FailureKind string

const (
	// KindAuthentication means the carrier rejected our credentials or token.
	KindAuthentication FailureKind = "authentication_failure"
	// KindTransient covers network errors, timeouts, 429 and 5xx. Safe to retry later.
	KindTransient FailureKind = "transient_failure"
	// KindPermanent covers every other 4xx and undecodable responses.
	KindPermanent FailureKind = "permanent_failure"
)

// Failure describes an unsuccessful carrier call.
type Failure struct {
	Kind       FailureKind
	Message    string
	StatusCode int
	// Payload is the carrier's raw error body, kept for operator diagnosis.
	Payload json.RawMessage
}

func (f *Failure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("carrier: %s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("carrier: %s: %s", f.Kind, f.Message)
}

// Result is the uniform outcome of every carrier operation. Exactly one of
// Data (OK == true) or the failure fields is meaningful.
type Result[T any] struct {
	OK         bool
	Data       T
	Kind       FailureKind
	Message    string
	StatusCode int
	Payload    json.RawMessage
}

// Err returns the failure as an error, or nil for a successful result.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	return &Failure{Kind: r.Kind, Message: r.Message, StatusCode: r.StatusCode, Payload: r.Payload}
}

func success[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

func failed[T any](f *Failure) Result[T] {
	return Result[T]{Kind: f.Kind, Message: f.Message, StatusCode: f.StatusCode, Payload: f.Payload}
}
