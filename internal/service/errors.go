package service

import (
	"errors"
	"strings"

	"github.com/alexanderramin/hourglass/internal/authz"
)

// ErrNotFound is returned when a tracker reference resolves to nothing.
var ErrNotFound = errors.New("time tracker not found")

// Messages shared by validation and bulk outcomes.
const (
	msgNotFound         = "Time tracker not found"
	msgForbidden        = "You are not allowed to perform this action"
	msgAlreadyRunning   = "User already has a running time tracker"
	msgBookingForbidden = "Time booking is not allowed for this project"
	msgUserInvalid      = "User is invalid"
	msgProjectInvalid   = "Project is invalid"
	msgIssueInvalid     = "Issue is invalid"
	msgActivityInvalid  = "Activity is invalid"
	msgIssueNotInProj   = "Issue does not belong to the project"
	msgCommentsTooLong  = "Comments is too long (maximum is 255 characters)"
)

// ValidationError carries field-level messages. Cause, when set, is the
// underlying condition such as a booking denial.
type ValidationError struct {
	Messages []string
	Cause    error
}

func (e *ValidationError) Error() string {
	return ToSentence(e.Messages)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ToSentence joins messages the way a human would list them:
// "a", "a and b", "a, b, and c".
func ToSentence(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
}

// ErrorMessages flattens an operation error into the messages reported per
// item in bulk results and in API error bodies.
func ErrorMessages(err error) []string {
	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return verr.Messages
	case errors.Is(err, ErrNotFound):
		return []string{msgNotFound}
	case errors.Is(err, authz.ErrForbidden):
		return []string{msgForbidden}
	}
	return []string{err.Error()}
}

// isExpected reports whether err is a caller-facing outcome rather than a fault.
func isExpected(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrNotFound) || errors.Is(err, authz.ErrForbidden)
}
