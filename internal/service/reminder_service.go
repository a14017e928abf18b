package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/provider"
	"github.com/olonts/salein-reminders/internal/ratelimit"
	"github.com/olonts/salein-reminders/internal/repository"
	"go.uber.org/zap"
)

// ReminderService serves the read API over reminders and the manual
// send-now path. Scheduled delivery belongs to the Dispatcher.
type ReminderService struct {
	reminders   repository.ReminderRepository
	attempts    repository.AttemptRepository
	sender      provider.EmailSender
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger

	emailFrom   string
	sendTimeout time.Duration
	now         func() time.Time
}

func NewReminderService(
	reminders repository.ReminderRepository,
	attempts repository.AttemptRepository,
	sender provider.EmailSender,
	rateLimiter ratelimit.RateLimiter,
	emailFrom string,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*ReminderService, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultInvoiceSendTimeout
	}

	return &ReminderService{
		reminders:   reminders,
		attempts:    attempts,
		sender:      sender,
		rateLimiter: rateLimiter,
		logger:      logger,
		emailFrom:   emailFrom,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}, nil
}

func (s *ReminderService) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: reminder id is required", domain.ErrValidation)
	}
	return s.reminders.GetByID(ctx, id)
}

func (s *ReminderService) List(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error) {
	return s.reminders.List(ctx, params)
}

func (s *ReminderService) Attempts(ctx context.Context, reminderID string) ([]domain.DeliveryAttempt, error) {
	if strings.TrimSpace(reminderID) == "" {
		return nil, fmt.Errorf("%w: reminder id is required", domain.ErrValidation)
	}
	if s.attempts == nil {
		return nil, nil
	}
	return s.attempts.GetByReminderID(ctx, reminderID)
}

// AdHocReminder describes a one-off reminder email that is not backed by a
// stored reminder record.
type AdHocReminder struct {
	To        string
	InvoiceID string
	DueDate   time.Time
	Amount    float64
}

// SendAdHoc delivers a reminder email immediately without touching the
// store. Returns the provider message id.
func (s *ReminderService) SendAdHoc(ctx context.Context, req AdHocReminder) (string, error) {
	if !domain.ValidEmail(req.To) {
		return "", fmt.Errorf("%w: invalid recipient email %q", domain.ErrValidation, req.To)
	}
	if strings.TrimSpace(req.InvoiceID) == "" {
		return "", fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if req.DueDate.IsZero() {
		return "", fmt.Errorf("%w: due date is required", domain.ErrValidation)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, emailRateBucket); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	reminder := domain.Reminder{
		InvoiceID:      strings.TrimSpace(req.InvoiceID),
		RecipientEmail: strings.TrimSpace(req.To),
		DueDate:        req.DueDate,
		Amount:         req.Amount,
	}
	resp, err := s.sender.Send(sendCtx, reminderEmail(s.emailFrom, reminder))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	messageID := ""
	if resp != nil {
		messageID = resp.MessageID
	}

	s.logger.Info("ad hoc reminder sent",
		zap.String("invoiceId", reminder.InvoiceID),
		zap.String("recipient", reminder.RecipientEmail),
	)
	return messageID, nil
}

// SendNow delivers a pending reminder immediately, skipping its scheduled
// send date. A terminal reminder is a conflict. Delivery failure leaves the
// reminder pending without consuming a retry; the poll loop keeps its own
// counter.
func (s *ReminderService) SendNow(ctx context.Context, id string) (*domain.Reminder, error) {
	reminder, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reminder.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: reminder %s is already %s", domain.ErrConflict, reminder.ID, reminder.Status)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, emailRateBucket); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if _, err := s.sender.Send(sendCtx, reminderEmail(s.emailFrom, *reminder)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	if err := s.reminders.UpdateStatus(ctx, reminder.ID, domain.StatusSent); err != nil {
		return nil, fmt.Errorf("reminder sent but status not updated: %w", err)
	}
	reminder.Status = domain.StatusSent

	s.logger.Info("reminder sent manually", zap.String("reminderId", reminder.ID))
	return reminder, nil
}
