package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/repository"
	"github.com/olonts/salein-reminders/internal/service"
	"github.com/olonts/salein-reminders/internal/transport"
	"go.uber.org/zap"
)

type stubReminderService struct {
	getByIDFn   func(ctx context.Context, id string) (*domain.Reminder, error)
	listFn      func(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error)
	attemptsFn  func(ctx context.Context, reminderID string) ([]domain.DeliveryAttempt, error)
	sendAdHocFn func(ctx context.Context, req service.AdHocReminder) (string, error)
	sendNowFn   func(ctx context.Context, id string) (*domain.Reminder, error)
}

func (s *stubReminderService) SendAdHoc(ctx context.Context, req service.AdHocReminder) (string, error) {
	if s.sendAdHocFn != nil {
		return s.sendAdHocFn(ctx, req)
	}
	return "", domain.ErrDelivery
}

func (s *stubReminderService) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubReminderService) List(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubReminderService) Attempts(ctx context.Context, reminderID string) ([]domain.DeliveryAttempt, error) {
	if s.attemptsFn != nil {
		return s.attemptsFn(ctx, reminderID)
	}
	return nil, nil
}

func (s *stubReminderService) SendNow(ctx context.Context, id string) (*domain.Reminder, error) {
	if s.sendNowFn != nil {
		return s.sendNowFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func newReminderTestApp(t *testing.T, svc ReminderService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterReminderRoutes(app, svc); err != nil {
		t.Fatalf("RegisterReminderRoutes() error = %v", err)
	}

	return app
}

func storedReminder(id string, status domain.Status) domain.Reminder {
	return domain.Reminder{
		ID:             id,
		InvoiceID:      "INV-100",
		RecipientEmail: "billing@example.com",
		Amount:         420.50,
		DueDate:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		SendDate:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:         status,
	}
}

func TestReminderIntegration_SendAdHocReminder(t *testing.T) {
	t.Parallel()

	svc := &stubReminderService{
		sendAdHocFn: func(ctx context.Context, req service.AdHocReminder) (string, error) {
			if req.To != "billing@example.com" || req.InvoiceID != "INV-100" {
				t.Errorf("request = %+v", req)
			}
			return "msg-7", nil
		},
	}
	app := newReminderTestApp(t, svc)

	body := `{"to":"billing@example.com","invoiceId":"INV-100","dueDate":"2026-03-15T00:00:00Z","amount":420.50}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/reminders/send", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}
	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["success"] != true || parsed["id"] != "msg-7" {
		t.Errorf("body = %v", parsed)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/reminders/send", `{"to":"billing@example.com","invoiceId":"INV-100","amount":1}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing due date", resp.StatusCode)
	}
}

func TestReminderIntegration_SendStoredReminder(t *testing.T) {
	t.Parallel()

	svc := &stubReminderService{
		sendNowFn: func(ctx context.Context, id string) (*domain.Reminder, error) {
			if id != "rem-1" {
				return nil, domain.ErrNotFound
			}
			r := storedReminder(id, domain.StatusSent)
			return &r, nil
		},
	}
	app := newReminderTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/reminders/rem-1/send", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusSent.String() {
		t.Errorf("status = %v, want sent", parsed["status"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/reminders/missing/send", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestReminderIntegration_SendStoredReminderConflict(t *testing.T) {
	t.Parallel()

	svc := &stubReminderService{
		sendNowFn: func(ctx context.Context, id string) (*domain.Reminder, error) {
			return nil, domain.ErrConflict
		},
	}
	app := newReminderTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/reminders/rem-1/send", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestReminderIntegration_ListReminders(t *testing.T) {
	t.Parallel()

	svc := &stubReminderService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error) {
			if params.Status == nil || *params.Status != domain.StatusPending {
				t.Errorf("status filter = %v, want pending", params.Status)
			}
			if params.InvoiceID == nil || *params.InvoiceID != "INV-100" {
				t.Errorf("invoice filter = %v, want INV-100", params.InvoiceID)
			}
			return []domain.Reminder{storedReminder("rem-1", domain.StatusPending)}, 1, nil
		},
	}
	app := newReminderTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/reminders?status=pending&invoiceId=INV-100&page=1&pageSize=10", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed listRemindersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 1 || parsed.Data[0].ID != "rem-1" {
		t.Errorf("data = %+v", parsed.Data)
	}
	if parsed.Meta.Total != 1 || parsed.Meta.PageSize != 10 {
		t.Errorf("meta = %+v", parsed.Meta)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/reminders?status=snoozed", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/reminders?pageSize=1000", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized page", resp.StatusCode)
	}
}

func TestReminderIntegration_GetReminderAttempts(t *testing.T) {
	t.Parallel()

	code := 200
	msgID := "msg-1"
	svc := &stubReminderService{
		attemptsFn: func(ctx context.Context, reminderID string) ([]domain.DeliveryAttempt, error) {
			return []domain.DeliveryAttempt{{
				ID:            "att-1",
				ReminderID:    reminderID,
				AttemptNumber: 1,
				StatusCode:    &code,
				MessageID:     &msgID,
				CreatedAt:     time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC),
			}}, nil
		},
	}
	app := newReminderTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/reminders/rem-1/attempts", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var parsed struct {
		Data []attemptResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 1 || parsed.Data[0].AttemptNumber != 1 {
		t.Errorf("data = %+v", parsed.Data)
	}
}
