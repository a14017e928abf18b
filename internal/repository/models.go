package repository

import (
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
)

// ReminderModel is the persistence model for the reminders table.
type ReminderModel struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	InvoiceID      string        `gorm:"type:varchar(64);not null"`
	RecipientEmail string        `gorm:"type:varchar(255);not null"`
	DueDate        time.Time     `gorm:"type:timestamptz;not null"`
	Amount         float64       `gorm:"type:numeric(14,2);not null;default:0"`
	SendDate       time.Time     `gorm:"type:timestamptz;not null"`
	Status         domain.Status `gorm:"type:varchar(10);not null"`
	RetryCount     int           `gorm:"not null;default:0"`
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ReminderModel) TableName() string {
	return "reminders"
}

// InvoiceModel is the persistence model for the invoices table.
type InvoiceModel struct {
	// Invoice ids are supplied by the caller (e.g. "INV-42"), not generated
	// here, so the column must accept arbitrary strings.
	ID                string               `gorm:"type:varchar(64);primaryKey"`
	RecipientEmail    string               `gorm:"type:varchar(255);not null"`
	TeamEmails        []string             `gorm:"serializer:json;type:text"`
	Amount            float64              `gorm:"type:numeric(14,2);not null;default:0"`
	Status            domain.InvoiceStatus `gorm:"type:varchar(10);not null"`
	InvoiceDate       time.Time            `gorm:"type:timestamptz"`
	DueDate           time.Time            `gorm:"type:timestamptz;not null"`
	ReminderEnabled   bool                 `gorm:"not null;default:false"`
	ReminderInterval  domain.Interval      `gorm:"type:varchar(10)"`
	ReminderCount     int                  `gorm:"not null;default:0"`
	ReminderTimeOfDay string               `gorm:"type:varchar(5)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

// DeliveryAttemptModel is the persistence model for reminder_attempts.
type DeliveryAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	ReminderID    string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    *int    `gorm:"type:int"`
	MessageID     *string `gorm:"type:varchar(255)"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "reminder_attempts"
}

func reminderModelFromDomain(r *domain.Reminder) *ReminderModel {
	if r == nil {
		return nil
	}

	return &ReminderModel{
		ID:             r.ID,
		InvoiceID:      r.InvoiceID,
		RecipientEmail: r.RecipientEmail,
		DueDate:        r.DueDate,
		Amount:         r.Amount,
		SendDate:       r.SendDate,
		Status:         r.Status,
		RetryCount:     r.RetryCount,
		NextRetryAt:    r.NextRetryAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderModel) *domain.Reminder {
	if m == nil {
		return nil
	}

	return &domain.Reminder{
		ID:             m.ID,
		InvoiceID:      m.InvoiceID,
		RecipientEmail: m.RecipientEmail,
		DueDate:        m.DueDate,
		Amount:         m.Amount,
		SendDate:       m.SendDate,
		Status:         m.Status,
		RetryCount:     m.RetryCount,
		NextRetryAt:    m.NextRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func invoiceModelFromDomain(i *domain.Invoice) *InvoiceModel {
	if i == nil {
		return nil
	}

	return &InvoiceModel{
		ID:                i.ID,
		RecipientEmail:    i.RecipientEmail,
		TeamEmails:        i.TeamEmails,
		Amount:            i.Amount,
		Status:            i.Status,
		InvoiceDate:       i.InvoiceDate,
		DueDate:           i.DueDate,
		ReminderEnabled:   i.ReminderEnabled,
		ReminderInterval:  i.ReminderPolicy.Interval,
		ReminderCount:     i.ReminderPolicy.Count,
		ReminderTimeOfDay: i.ReminderPolicy.TimeOfDay,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

func invoiceModelToDomain(m *InvoiceModel) *domain.Invoice {
	if m == nil {
		return nil
	}

	return &domain.Invoice{
		ID:              m.ID,
		RecipientEmail:  m.RecipientEmail,
		TeamEmails:      m.TeamEmails,
		Amount:          m.Amount,
		Status:          m.Status,
		InvoiceDate:     m.InvoiceDate,
		DueDate:         m.DueDate,
		ReminderEnabled: m.ReminderEnabled,
		ReminderPolicy: domain.ReminderPolicy{
			Enabled:   m.ReminderEnabled,
			Interval:  m.ReminderInterval,
			Count:     m.ReminderCount,
			TimeOfDay: m.ReminderTimeOfDay,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:            a.ID,
		ReminderID:    a.ReminderID,
		AttemptNumber: a.AttemptNumber,
		StatusCode:    a.StatusCode,
		MessageID:     a.MessageID,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		ReminderID:    m.ReminderID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		MessageID:     m.MessageID,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}
