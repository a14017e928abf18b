package domain

import (
	"fmt"
	"strings"
	"time"
)

// InvoiceStatus represents the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) String() string { return string(s) }

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

func ParseInvoiceStatusFromString(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid invoice status %q", ErrValidation, s)
	}
	return st, nil
}

// Invoice is the record persisted when an invoice is sent. Reminder policy
// fields ride along so the reminder schedule can be reconstructed later.
type Invoice struct {
	ID              string
	RecipientEmail  string
	TeamEmails      []string
	Amount          float64
	Status          InvoiceStatus
	InvoiceDate     time.Time
	DueDate         time.Time
	ReminderEnabled bool
	ReminderPolicy  ReminderPolicy
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (i *Invoice) Validate() error {
	if !ValidEmail(i.RecipientEmail) {
		return fmt.Errorf("%w: invalid recipient email %q", ErrValidation, i.RecipientEmail)
	}
	for _, cc := range i.TeamEmails {
		if !ValidEmail(cc) {
			return fmt.Errorf("%w: invalid team email %q", ErrValidation, cc)
		}
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: invalid invoice status %q", ErrValidation, i.Status)
	}
	if i.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if i.ReminderEnabled {
		if err := i.ReminderPolicy.Validate(); err != nil {
			return err
		}
	}
	return nil
}
