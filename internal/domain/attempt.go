package domain

import "time"

// DeliveryAttempt records a single email delivery attempt for a reminder.
type DeliveryAttempt struct {
	ID            string
	ReminderID    string
	AttemptNumber int
	StatusCode    *int
	MessageID     *string
	Error         *string
	CreatedAt     time.Time
}
