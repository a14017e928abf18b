package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/service"
	"github.com/olonts/salein-reminders/internal/transport"
	"go.uber.org/zap"
)

type stubInvoiceService struct {
	sendInvoiceFn  func(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error)
	updateStatusFn func(ctx context.Context, id string, status domain.InvoiceStatus) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Invoice, error)
}

func (s *stubInvoiceService) SendInvoice(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error) {
	if s.sendInvoiceFn != nil {
		return s.sendInvoiceFn(ctx, input)
	}
	return &service.SendInvoiceResult{}, nil
}

func (s *stubInvoiceService) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (s *stubInvoiceService) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func newInvoiceTestApp(t *testing.T, svc InvoiceService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterInvoiceRoutes(app, svc); err != nil {
		t.Fatalf("RegisterInvoiceRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestInvoiceIntegration_SendInvoice(t *testing.T) {
	t.Parallel()

	svc := &stubInvoiceService{
		sendInvoiceFn: func(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error) {
			if input.InvoiceID != "INV-42" {
				t.Errorf("invoice id = %q, want INV-42", input.InvoiceID)
			}
			if !input.ReminderPolicy.Enabled || input.ReminderPolicy.Interval != domain.IntervalWeekly {
				t.Errorf("policy = %+v", input.ReminderPolicy)
			}
			return &service.SendInvoiceResult{
				Invoice: domain.Invoice{
					ID:             input.InvoiceID,
					RecipientEmail: input.RecipientEmail,
					Amount:         input.Amount,
					Status:         domain.InvoiceStatusPending,
					InvoiceDate:    input.InvoiceDate,
					DueDate:        input.DueDate,
				},
				MessageID:          "msg-9",
				RemindersScheduled: 2,
			}, nil
		},
	}

	app := newInvoiceTestApp(t, svc)

	body := `{
		"invoiceId": "INV-42",
		"recipientEmail": "billing@example.com",
		"amount": 199.99,
		"invoiceDate": "2026-03-01T00:00:00Z",
		"dueDate": "2026-04-01T00:00:00Z",
		"htmlBody": "<p>invoice</p>",
		"reminderPolicy": {"enabled": true, "interval": "weekly", "count": 2, "timeOfDay": "09:00"}
	}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/invoices/send", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["messageId"] != "msg-9" {
		t.Errorf("messageId = %v, want msg-9", parsed["messageId"])
	}
	if parsed["remindersScheduled"] != float64(2) {
		t.Errorf("remindersScheduled = %v, want 2", parsed["remindersScheduled"])
	}
}

func TestInvoiceIntegration_SendInvoiceBadRequests(t *testing.T) {
	t.Parallel()

	svc := &stubInvoiceService{
		sendInvoiceFn: func(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error) {
			t.Error("service should not be called for malformed input")
			return nil, nil
		},
	}
	app := newInvoiceTestApp(t, svc)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{not json`},
		{name: "missing due date", body: `{"invoiceId":"INV-1","recipientEmail":"a@b.co","invoiceDate":"2026-03-01T00:00:00Z","htmlBody":"x"}`},
		{name: "bad due date format", body: `{"invoiceId":"INV-1","recipientEmail":"a@b.co","invoiceDate":"2026-03-01T00:00:00Z","dueDate":"01/04/2026","htmlBody":"x"}`},
		{name: "bad interval", body: `{"invoiceId":"INV-1","recipientEmail":"a@b.co","invoiceDate":"2026-03-01T00:00:00Z","dueDate":"2026-04-01T00:00:00Z","htmlBody":"x","reminderPolicy":{"enabled":true,"interval":"hourly","count":1,"timeOfDay":"09:00"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, _ := performRequest(t, app, http.MethodPost, "/v1/invoices/send", tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestInvoiceIntegration_SendInvoiceDeliveryFailure(t *testing.T) {
	t.Parallel()

	svc := &stubInvoiceService{
		sendInvoiceFn: func(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error) {
			return nil, domain.ErrDelivery
		},
	}
	app := newInvoiceTestApp(t, svc)

	body := `{"invoiceId":"INV-1","recipientEmail":"a@b.co","invoiceDate":"2026-03-01T00:00:00Z","dueDate":"2026-04-01T00:00:00Z","htmlBody":"x"}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/invoices/send", body)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestInvoiceIntegration_UpdateStatus(t *testing.T) {
	t.Parallel()

	var gotStatus domain.InvoiceStatus
	svc := &stubInvoiceService{
		updateStatusFn: func(ctx context.Context, id string, status domain.InvoiceStatus) error {
			if id != "INV-42" {
				return domain.ErrNotFound
			}
			gotStatus = status
			return nil
		},
	}
	app := newInvoiceTestApp(t, svc)

	resp, respBody := performRequest(t, app, http.MethodPatch, "/v1/invoices/INV-42/status", `{"status":"paid"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}
	if gotStatus != domain.InvoiceStatusPaid {
		t.Errorf("forwarded status = %v, want paid", gotStatus)
	}

	resp, _ = performRequest(t, app, http.MethodPatch, "/v1/invoices/INV-42/status", `{"status":"settled"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPatch, "/v1/invoices/INV-404/status", `{"status":"paid"}`)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for missing invoice", resp.StatusCode)
	}
}

func TestInvoiceIntegration_GetInvoice(t *testing.T) {
	t.Parallel()

	svc := &stubInvoiceService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Invoice, error) {
			if id != "INV-42" {
				return nil, domain.ErrNotFound
			}
			return &domain.Invoice{
				ID:             "INV-42",
				RecipientEmail: "billing@example.com",
				Amount:         199.99,
				Status:         domain.InvoiceStatusPending,
				InvoiceDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				DueDate:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	app := newInvoiceTestApp(t, svc)

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/invoices/INV-42", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["id"] != "INV-42" || parsed["status"] != "pending" {
		t.Errorf("body = %v", parsed)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/invoices/INV-404", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
