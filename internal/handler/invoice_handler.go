package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/service"
)

type InvoiceService interface {
	SendInvoice(ctx context.Context, input service.SendInvoiceInput) (*service.SendInvoiceResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
}

type InvoiceHandler struct {
	service InvoiceService
}

func NewInvoiceHandler(service InvoiceService) (*InvoiceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("invoice service is required")
	}
	return &InvoiceHandler{service: service}, nil
}

func RegisterInvoiceRoutes(router fiber.Router, service InvoiceService) error {
	h, err := NewInvoiceHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/invoices/send", h.SendInvoice)
	v1.Get("/invoices/:id", h.GetInvoice)
	v1.Patch("/invoices/:id/status", h.UpdateInvoiceStatus)

	return nil
}

type reminderPolicyRequest struct {
	Enabled   bool   `json:"enabled"`
	Interval  string `json:"interval"`
	Count     int    `json:"count"`
	TimeOfDay string `json:"timeOfDay"`
}

type sendInvoiceRequest struct {
	InvoiceID      string                 `json:"invoiceId"`
	RecipientEmail string                 `json:"recipientEmail"`
	TeamEmails     []string               `json:"teamEmails,omitempty"`
	Amount         float64                `json:"amount"`
	InvoiceDate    string                 `json:"invoiceDate"`
	DueDate        string                 `json:"dueDate"`
	Subject        string                 `json:"subject,omitempty"`
	HTMLBody       string                 `json:"htmlBody"`
	PDFFilename    string                 `json:"pdfFilename,omitempty"`
	PDFBase64      string                 `json:"pdfBase64,omitempty"`
	ReminderPolicy *reminderPolicyRequest `json:"reminderPolicy,omitempty"`
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type invoiceResponse struct {
	ID              string    `json:"id"`
	RecipientEmail  string    `json:"recipientEmail"`
	TeamEmails      []string  `json:"teamEmails,omitempty"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	InvoiceDate     time.Time `json:"invoiceDate"`
	DueDate         time.Time `json:"dueDate"`
	ReminderEnabled bool      `json:"reminderEnabled"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

type sendInvoiceResponse struct {
	Invoice            invoiceResponse `json:"invoice"`
	MessageID          string          `json:"messageId,omitempty"`
	RemindersScheduled int             `json:"remindersScheduled"`
	Warning            string          `json:"warning,omitempty"`
}

func (h *InvoiceHandler) SendInvoice(c *fiber.Ctx) error {
	var req sendInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input, err := requestToSendInvoiceInput(req)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.SendInvoice(c.Context(), input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(sendInvoiceResponse{
		Invoice:            toInvoiceResponse(&result.Invoice),
		MessageID:          result.MessageID,
		RemindersScheduled: result.RemindersScheduled,
		Warning:            result.ReminderWarning,
	})
}

func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	invoice, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInvoiceResponse(invoice))
}

func (h *InvoiceHandler) UpdateInvoiceStatus(c *fiber.Ctx) error {
	var req updateInvoiceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := domain.ParseInvoiceStatusFromString(req.Status)
	if err != nil {
		return toHTTPError(err)
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.UpdateStatus(c.Context(), id, status); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"invoiceId": id,
		"status":    status.String(),
	})
}

func requestToSendInvoiceInput(req sendInvoiceRequest) (service.SendInvoiceInput, error) {
	invoiceDate, err := parseRFC3339Field(req.InvoiceDate, "invoiceDate")
	if err != nil {
		return service.SendInvoiceInput{}, err
	}
	dueDate, err := parseRFC3339Field(req.DueDate, "dueDate")
	if err != nil {
		return service.SendInvoiceInput{}, err
	}

	input := service.SendInvoiceInput{
		InvoiceID:      strings.TrimSpace(req.InvoiceID),
		RecipientEmail: strings.TrimSpace(req.RecipientEmail),
		TeamEmails:     req.TeamEmails,
		Amount:         req.Amount,
		InvoiceDate:    invoiceDate,
		DueDate:        dueDate,
		Subject:        req.Subject,
		HTMLBody:       req.HTMLBody,
		PDFFilename:    req.PDFFilename,
		PDFBase64:      req.PDFBase64,
	}

	if req.ReminderPolicy != nil {
		policy := domain.ReminderPolicy{
			Enabled:   req.ReminderPolicy.Enabled,
			Count:     req.ReminderPolicy.Count,
			TimeOfDay: req.ReminderPolicy.TimeOfDay,
		}
		if policy.Enabled {
			interval, err := domain.ParseIntervalFromString(req.ReminderPolicy.Interval)
			if err != nil {
				return service.SendInvoiceInput{}, err
			}
			policy.Interval = interval
		}
		input.ReminderPolicy = policy
	}

	return input, nil
}

func parseRFC3339Field(value string, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return t, nil
}

func toInvoiceResponse(invoice *domain.Invoice) invoiceResponse {
	if invoice == nil {
		return invoiceResponse{}
	}

	return invoiceResponse{
		ID:              invoice.ID,
		RecipientEmail:  invoice.RecipientEmail,
		TeamEmails:      invoice.TeamEmails,
		Amount:          invoice.Amount,
		Status:          invoice.Status.String(),
		InvoiceDate:     invoice.InvoiceDate,
		DueDate:         invoice.DueDate,
		ReminderEnabled: invoice.ReminderEnabled,
		CreatedAt:       invoice.CreatedAt,
		UpdatedAt:       invoice.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
