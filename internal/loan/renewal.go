package loan

import (
	"errors"
	"strings"
	"time"

	"locallibrary/internal/catalog"
)

const (
	// DefaultRenewalDays is how far ahead the renewal form proposes.
	DefaultRenewalDays = 21
	// MaxRenewalDays is the latest acceptable due date, counted from today.
	MaxRenewalDays = 28
)

var (
	ErrDateInPast = errors.New("invalid date: renewal in past")
	ErrDateTooFar = errors.New("invalid date: renewal more than 4 weeks ahead")
)

// FieldError is a problem with one submitted field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects field errors for redisplay.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

// ProposedDueBack is the date the renewal form is pre-filled with.
func ProposedDueBack(now time.Time) time.Time {
	return catalog.Today(now).AddDate(0, 0, DefaultRenewalDays)
}

// ValidateRenewalDate checks a requested due date against today.
// Both today and today+4 weeks are accepted.
func ValidateRenewalDate(d, now time.Time) error {
	today := catalog.Today(now)
	d = catalog.Today(d)
	if d.Before(today) {
		return ErrDateInPast
	}
	if d.After(today.AddDate(0, 0, MaxRenewalDays)) {
		return ErrDateTooFar
	}
	return nil
}

func renewalMessage(err error) string {
	switch {
	case errors.Is(err, ErrDateInPast):
		return "Invalid date - renewal in past"
	case errors.Is(err, ErrDateTooFar):
		return "Invalid date - renewal more than 4 weeks ahead"
	}
	return err.Error()
}
