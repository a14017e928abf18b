package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status represents the lifecycle state of a reminder.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions may occur.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Interval represents the spacing between scheduled reminder occurrences.
type Interval string

const (
	IntervalDaily    Interval = "daily"
	IntervalWeekly   Interval = "weekly"
	IntervalBiweekly Interval = "biweekly"
	IntervalMonthly  Interval = "monthly"
)

func (i Interval) String() string { return string(i) }

func (i Interval) IsValid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalBiweekly, IntervalMonthly:
		return true
	}
	return false
}

func ParseIntervalFromString(s string) (Interval, error) {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	if !iv.IsValid() {
		return "", fmt.Errorf("%w: invalid interval %q", ErrValidation, s)
	}
	return iv, nil
}

// Shift returns t moved back n intervals. Occurrence 1 is the closest to t.
func (i Interval) Shift(t time.Time, n int) time.Time {
	switch i {
	case IntervalDaily:
		return t.AddDate(0, 0, -n)
	case IntervalWeekly:
		return t.AddDate(0, 0, -7*n)
	case IntervalBiweekly:
		return t.AddDate(0, 0, -14*n)
	case IntervalMonthly:
		return t.AddDate(0, -n, 0)
	}
	return t
}

// DefaultMaxRetries bounds delivery attempts per reminder.
const DefaultMaxRetries = 3

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s passes basic email-shape validation.
func ValidEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}

// Reminder is a scheduled one-time payment notification for an invoice.
// SendDate is set at creation and never mutated; only Status and RetryCount
// change afterwards, and only through the dispatcher.
type Reminder struct {
	ID             string
	InvoiceID      string
	RecipientEmail string
	DueDate        time.Time
	Amount         float64
	SendDate       time.Time
	Status         Status
	RetryCount     int
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.InvoiceID) == "" {
		return fmt.Errorf("%w: invoice id is required", ErrValidation)
	}
	if !ValidEmail(r.RecipientEmail) {
		return fmt.Errorf("%w: invalid recipient email %q", ErrValidation, r.RecipientEmail)
	}
	if r.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if r.SendDate.IsZero() {
		return fmt.Errorf("%w: send date is required", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	if r.RetryCount < 0 {
		return fmt.Errorf("%w: retry count must not be negative", ErrValidation)
	}
	return nil
}

// ReminderPolicy configures how many reminders an invoice gets and when.
type ReminderPolicy struct {
	Enabled   bool
	Interval  Interval
	Count     int
	TimeOfDay string // "HH:mm"
}

func (p ReminderPolicy) Validate() error {
	if !p.Enabled {
		return nil
	}
	if !p.Interval.IsValid() {
		return fmt.Errorf("%w: invalid interval %q", ErrValidation, p.Interval)
	}
	if p.Count < 1 {
		return fmt.Errorf("%w: reminder count must be at least 1 (got %d)", ErrValidation, p.Count)
	}
	if _, _, err := p.ClockTime(); err != nil {
		return err
	}
	return nil
}

// ClockTime parses TimeOfDay into hour and minute.
func (p ReminderPolicy) ClockTime() (hour, minute int, err error) {
	parsed, parseErr := time.Parse("15:04", strings.TrimSpace(p.TimeOfDay))
	if parseErr != nil {
		return 0, 0, fmt.Errorf("%w: invalid time of day %q", ErrValidation, p.TimeOfDay)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
