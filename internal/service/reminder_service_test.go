package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/provider"
	"go.uber.org/zap"
)

func newTestReminderService(t *testing.T, reminders *fakeReminderRepo, sender *fakeSender) *ReminderService {
	t.Helper()

	svc, err := NewReminderService(
		reminders,
		&fakeAttemptRepo{},
		sender,
		&fakeRateLimiter{},
		"Salein <invoices@olonts.site>",
		time.Second,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewReminderService() error = %v", err)
	}
	return svc
}

func TestReminderService_SendNow(t *testing.T) {
	t.Parallel()

	stored := dueReminder("rem-1", 1)
	reminders := &fakeReminderRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Reminder, error) {
			if id != "rem-1" {
				return nil, domain.ErrNotFound
			}
			snapshot := stored
			return &snapshot, nil
		},
	}
	sender := &fakeSender{}

	svc := newTestReminderService(t, reminders, sender)
	got, err := svc.SendNow(context.Background(), "rem-1")
	if err != nil {
		t.Fatalf("SendNow() error = %v", err)
	}

	if got.Status != domain.StatusSent {
		t.Errorf("status = %v, want sent", got.Status)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if sender.sent[0].Subject != "Payment Reminder for Invoice #INV-100" {
		t.Errorf("subject = %q", sender.sent[0].Subject)
	}
	if len(reminders.statusUpdates) != 1 || reminders.statusUpdates[0] != domain.StatusSent {
		t.Errorf("status updates = %v, want [sent]", reminders.statusUpdates)
	}
}

func TestReminderService_SendNow_TerminalIsConflict(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.Status{domain.StatusSent, domain.StatusFailed} {
		stored := dueReminder("rem-1", 0)
		stored.Status = status
		reminders := &fakeReminderRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Reminder, error) {
				snapshot := stored
				return &snapshot, nil
			},
		}
		sender := &fakeSender{}

		svc := newTestReminderService(t, reminders, sender)
		_, err := svc.SendNow(context.Background(), "rem-1")
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("status %v: SendNow() error = %v, want ErrConflict", status, err)
		}
		if len(sender.sent) != 0 {
			t.Errorf("status %v: sent %d emails, want 0", status, len(sender.sent))
		}
	}
}

func TestReminderService_SendNow_DeliveryFailureLeavesPending(t *testing.T) {
	t.Parallel()

	reminders := &fakeReminderRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Reminder, error) {
			r := dueReminder("rem-1", 0)
			return &r, nil
		},
	}
	sender := &fakeSender{
		sendFn: func(ctx context.Context, email provider.Email) (*provider.SendResponse, error) {
			return nil, errors.New("provider down")
		},
	}

	svc := newTestReminderService(t, reminders, sender)
	_, err := svc.SendNow(context.Background(), "rem-1")
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("SendNow() error = %v, want ErrDelivery", err)
	}
	if len(reminders.statusUpdates) != 0 {
		t.Errorf("status updates = %v, want none", reminders.statusUpdates)
	}
	if len(reminders.retryUpdates) != 0 {
		t.Errorf("retry updates = %v, want none", reminders.retryUpdates)
	}
}

func TestReminderService_SendNow_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestReminderService(t, &fakeReminderRepo{}, &fakeSender{})
	_, err := svc.SendNow(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SendNow() error = %v, want ErrNotFound", err)
	}
}

func TestReminderService_SendAdHoc(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	svc := newTestReminderService(t, &fakeReminderRepo{}, sender)

	messageID, err := svc.SendAdHoc(context.Background(), AdHocReminder{
		To:        "billing@example.com",
		InvoiceID: "INV-100",
		DueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:    420.50,
	})
	if err != nil {
		t.Fatalf("SendAdHoc() error = %v", err)
	}
	if messageID != "msg-1" {
		t.Errorf("message id = %q, want msg-1", messageID)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if sender.sent[0].Subject != "Payment Reminder for Invoice #INV-100" {
		t.Errorf("subject = %q", sender.sent[0].Subject)
	}
}

func TestReminderService_SendAdHoc_Validation(t *testing.T) {
	t.Parallel()

	valid := AdHocReminder{
		To:        "billing@example.com",
		InvoiceID: "INV-100",
		DueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:    420.50,
	}

	tests := []struct {
		name   string
		mutate func(req *AdHocReminder)
	}{
		{name: "bad email", mutate: func(req *AdHocReminder) { req.To = "nope" }},
		{name: "blank invoice id", mutate: func(req *AdHocReminder) { req.InvoiceID = " " }},
		{name: "zero due date", mutate: func(req *AdHocReminder) { req.DueDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			svc := newTestReminderService(t, &fakeReminderRepo{}, sender)

			req := valid
			tt.mutate(&req)

			if _, err := svc.SendAdHoc(context.Background(), req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("SendAdHoc() error = %v, want ErrValidation", err)
			}
			if len(sender.sent) != 0 {
				t.Errorf("sent %d emails, want 0", len(sender.sent))
			}
		})
	}
}

func TestReminderService_GetByID_BlankID(t *testing.T) {
	t.Parallel()

	svc := newTestReminderService(t, &fakeReminderRepo{}, &fakeSender{})
	if _, err := svc.GetByID(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetByID() error = %v, want ErrValidation", err)
	}
}
