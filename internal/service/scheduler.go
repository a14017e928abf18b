package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/repository"
	"go.uber.org/zap"
)

// Scheduler translates a reminder policy into persisted reminder records at
// the moment an invoice is sent. It writes; it never delivers.
type Scheduler struct {
	reminders repository.ReminderRepository
	logger    *zap.Logger
	now       func() time.Time
}

// ScheduleRequest carries everything a reminder needs from the invoice-send
// flow.
type ScheduleRequest struct {
	InvoiceID      string
	RecipientEmail string
	DueDate        time.Time
	Amount         float64
	Policy         domain.ReminderPolicy
}

func NewScheduler(reminders repository.ReminderRepository, logger *zap.Logger) (*Scheduler, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Schedule computes the occurrence dates for the policy and persists one
// pending reminder per occurrence. With a disabled policy it creates nothing.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) ([]domain.Reminder, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !req.Policy.Enabled {
		return nil, nil
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	sendDates := occurrences(req.Policy, req.DueDate, s.now())
	if len(sendDates) == 0 {
		return nil, nil
	}

	created := make([]domain.Reminder, len(sendDates))
	createdPtrs := make([]*domain.Reminder, len(sendDates))
	for i, sendDate := range sendDates {
		created[i] = domain.Reminder{
			ID:             uuid.NewString(),
			InvoiceID:      strings.TrimSpace(req.InvoiceID),
			RecipientEmail: strings.TrimSpace(req.RecipientEmail),
			DueDate:        req.DueDate,
			Amount:         req.Amount,
			SendDate:       sendDate,
			Status:         domain.StatusPending,
			RetryCount:     0,
		}
		if err := created[i].Validate(); err != nil {
			return nil, err
		}
		createdPtrs[i] = &created[i]
	}

	if err := s.reminders.CreateBatch(ctx, createdPtrs); err != nil {
		return nil, fmt.Errorf("failed to persist reminders: %w", err)
	}

	s.logger.Info("reminders scheduled",
		zap.String("invoiceId", req.InvoiceID),
		zap.Int("count", len(created)),
		zap.String("interval", req.Policy.Interval.String()),
	)

	return created, nil
}

func (s *Scheduler) validateRequest(req ScheduleRequest) error {
	if strings.TrimSpace(req.InvoiceID) == "" {
		return fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if !domain.ValidEmail(req.RecipientEmail) {
		return fmt.Errorf("%w: invalid recipient email %q", domain.ErrValidation, req.RecipientEmail)
	}
	if req.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", domain.ErrValidation)
	}
	return req.Policy.Validate()
}

// occurrences returns the send dates for a policy, ascending. Occurrence i
// sits i intervals before the due date at the policy's time of day.
// Occurrences already in the past coalesce into a single catch-up date at
// the next upcoming time of day, so a freshly created reminder is never
// immediately due.
func occurrences(policy domain.ReminderPolicy, dueDate time.Time, now time.Time) []time.Time {
	hour, minute, err := policy.ClockTime()
	if err != nil {
		return nil
	}

	loc := now.Location()
	dates := make([]time.Time, 0, policy.Count)
	missed := false

	for i := 1; i <= policy.Count; i++ {
		shifted := policy.Interval.Shift(dueDate.In(loc), i)
		occurrence := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), hour, minute, 0, 0, loc)
		if !occurrence.After(now) {
			missed = true
			continue
		}
		dates = append(dates, occurrence)
	}

	if missed {
		dates = append(dates, nextClockTime(now, hour, minute))
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// nextClockTime returns today at hh:mm if that is still ahead, else
// tomorrow at hh:mm.
func nextClockTime(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if candidate.After(now) {
		return candidate
	}
	return candidate.AddDate(0, 0, 1)
}
