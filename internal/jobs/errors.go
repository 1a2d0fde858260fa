package jobs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a job failure. Fetch, delivery and configuration errors
// escape a run; action errors are always folded into the report.
type Kind int

const (
	KindFetch Kind = iota + 1
	KindAction
	KindDelivery
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindAction:
		return "action"
	case KindDelivery:
		return "delivery"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified job error. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s error", e.Op, e.Kind)
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func FetchError(op string, err error) error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

func ActionError(op string, err error) error {
	return &Error{Kind: KindAction, Op: op, Err: err}
}

func DeliveryError(op string, err error) error {
	return &Error{Kind: KindDelivery, Op: op, Err: err}
}

func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// MissingSecretsError lists every absent secret in one configuration error.
func MissingSecretsError(names ...string) error {
	return ConfigurationError("config", fmt.Errorf("missing required environment variables: %s", strings.Join(names, ", ")))
}

// KindOf returns the kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether the scheduler should try the run again.
// Configuration problems never fix themselves between attempts.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) != KindConfiguration
}

// DescribeError is the text used when an error is folded into a report.
func DescribeError(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var je *Error
	if errors.As(err, &je) && je.Err != nil {
		err = je.Err
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Unknown error"
	}
	return msg
}
