package reconciler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSpec indicates a desired record set that cannot be reconciled.
	ErrInvalidSpec = errors.New("invalid record set specification")

	// ErrPolicyViolation indicates on_existing=keep_and_fail was triggered.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrPartialApplication indicates a plan failed after some operations were applied.
	ErrPartialApplication = errors.New("partial application")
)

// SpecError describes an invalid desired record set.
type SpecError struct {
	// Index is the position of the record set in the request.
	Index   int
	Name    string
	Type    string
	Message string
	Err     error
}

func (e *SpecError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return fmt.Sprintf("record set #%d (%s %s): %s", e.Index, e.Name, e.Type, msg)
}

// Unwrap exposes ErrInvalidSpec and the underlying cause.
func (e *SpecError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidSpec, e.Err}
	}
	return []error{ErrInvalidSpec}
}

// PolicyViolationError is returned when a record set differs from the
// desired state and its policy is keep_and_fail. No writes were made.
type PolicyViolationError struct {
	Prefix  string
	Type    string
	Current []string
	Desired []string
}

func (e *PolicyViolationError) Error() string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "@"
	}
	return fmt.Sprintf("record set %s %s exists with different content (current [%s], desired [%s]) and on_existing is keep_and_fail",
		prefix, e.Type, strings.Join(e.Current, ", "), strings.Join(e.Desired, ", "))
}

func (e *PolicyViolationError) Unwrap() error {
	return ErrPolicyViolation
}

// PartialApplicationError reports a plan that stopped at the first failing
// operation. Completed operations are not rolled back; running the same
// request again re-plans against the new state.
type PartialApplicationError struct {
	Completed []Operation
	Failed    []Operation
	Pending   []Operation
	Err       error
}

func (e *PartialApplicationError) Error() string {
	return fmt.Sprintf("applied %d operation(s), %d failed, %d not attempted: %v",
		len(e.Completed), len(e.Failed), len(e.Pending), e.Err)
}

// Unwrap exposes ErrPartialApplication and the provider error.
func (e *PartialApplicationError) Unwrap() []error {
	return []error{ErrPartialApplication, e.Err}
}

// IsPolicyViolation returns true if err was caused by keep_and_fail.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrPolicyViolation)
}

// IsPartialApplication returns true if err reports a partially applied plan.
func IsPartialApplication(err error) bool {
	return errors.Is(err, ErrPartialApplication)
}
