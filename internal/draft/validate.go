package draft

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mmynk/nbbang/internal/models"
)

// InvalidDraftError blocks a draft save. The draft itself is left untouched so
// the user can keep editing.
type InvalidDraftError struct {
	Problems *multierror.Error
}

func (e *InvalidDraftError) Error() string {
	return "invalid draft: " + e.Problems.Error()
}

func (e *InvalidDraftError) Unwrap() error {
	return e.Problems
}

// Violations returns each individual problem.
func (e *InvalidDraftError) Violations() []error {
	return e.Problems.WrappedErrors()
}

func joinProblems(es []error) string {
	parts := make([]string, len(es))
	for i, err := range es {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks a draft before save: a meeting name, at least one member and
// one item, and for every item a name, at least one attendee, attendees that
// are members, a non-negative price and a payer who is a member.
func Validate(d models.Draft) error {
	var result *multierror.Error

	if strings.TrimSpace(d.MeetingName) == "" {
		result = multierror.Append(result, fmt.Errorf("meeting name is required"))
	}
	if len(d.Members) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one member is required"))
	}
	if len(d.Items) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one item is required"))
	}

	for i, item := range d.Items {
		label := fmt.Sprintf("item %d", i+1)
		if strings.TrimSpace(item.Name) == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", label))
		} else {
			label = fmt.Sprintf("item %d (%s)", i+1, item.Name)
		}
		if item.Price < 0 {
			result = multierror.Append(result, fmt.Errorf("%s: price %d is negative", label, item.Price))
		}
		if len(item.Attendees) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: at least one attendee is required", label))
		}
		for _, a := range item.Attendees {
			if !slices.Contains(d.Members, a) {
				result = multierror.Append(result, fmt.Errorf("%s: attendee %s is not a member", label, a))
			}
		}
		if !slices.Contains(d.Members, item.Payer) {
			result = multierror.Append(result, fmt.Errorf("%s: payer %q is not a member", label, item.Payer))
		}
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = joinProblems
	return &InvalidDraftError{Problems: result}
}
