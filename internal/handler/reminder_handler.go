package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/repository"
	"github.com/olonts/salein-reminders/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type ReminderService interface {
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Reminder, int64, error)
	Attempts(ctx context.Context, reminderID string) ([]domain.DeliveryAttempt, error)
	SendAdHoc(ctx context.Context, req service.AdHocReminder) (string, error)
	SendNow(ctx context.Context, id string) (*domain.Reminder, error)
}

type ReminderHandler struct {
	service ReminderService
}

func NewReminderHandler(service ReminderService) (*ReminderHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("reminder service is required")
	}
	return &ReminderHandler{service: service}, nil
}

func RegisterReminderRoutes(router fiber.Router, service ReminderService) error {
	h, err := NewReminderHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/reminders/send", h.SendReminder)
	v1.Get("/reminders", h.ListReminders)
	v1.Get("/reminders/:id", h.GetReminder)
	v1.Post("/reminders/:id/send", h.SendStoredReminder)
	v1.Get("/reminders/:id/attempts", h.GetReminderAttempts)

	return nil
}

type sendReminderRequest struct {
	To        string  `json:"to"`
	InvoiceID string  `json:"invoiceId"`
	DueDate   string  `json:"dueDate"`
	Amount    float64 `json:"amount"`
}

type reminderResponse struct {
	ID             string     `json:"id"`
	InvoiceID      string     `json:"invoiceId"`
	RecipientEmail string     `json:"recipientEmail"`
	Amount         float64    `json:"amount"`
	DueDate        time.Time  `json:"dueDate"`
	SendDate       time.Time  `json:"sendDate"`
	Status         string     `json:"status"`
	RetryCount     int        `json:"retryCount"`
	NextRetryAt    *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt,omitempty"`
}

type listRemindersResponse struct {
	Data []reminderResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	ReminderID    string    `json:"reminderId"`
	AttemptNumber int       `json:"attemptNumber"`
	StatusCode    *int      `json:"statusCode,omitempty"`
	MessageID     *string   `json:"messageId,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SendReminder sends a one-off reminder email without a stored record,
// mirroring the manual "remind now" action in the invoice UI.
func (h *ReminderHandler) SendReminder(c *fiber.Ctx) error {
	var req sendReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	dueDate, err := parseRFC3339Field(req.DueDate, "dueDate")
	if err != nil {
		return toHTTPError(err)
	}

	messageID, err := h.service.SendAdHoc(c.Context(), service.AdHocReminder{
		To:        strings.TrimSpace(req.To),
		InvoiceID: strings.TrimSpace(req.InvoiceID),
		DueDate:   dueDate,
		Amount:    req.Amount,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"id":      messageID,
	})
}

// SendStoredReminder delivers a pending reminder ahead of its schedule.
func (h *ReminderHandler) SendStoredReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.service.SendNow(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func (h *ReminderHandler) GetReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func (h *ReminderHandler) GetReminderAttempts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	attempts, err := h.service.Attempts(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, attemptResponse{
			ID:            attempt.ID,
			ReminderID:    attempt.ReminderID,
			AttemptNumber: attempt.AttemptNumber,
			StatusCode:    attempt.StatusCode,
			MessageID:     attempt.MessageID,
			Error:         attempt.Error,
			CreatedAt:     attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *ReminderHandler) ListReminders(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	reminders, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]reminderResponse, 0, len(reminders))
	for i := range reminders {
		responses = append(responses, toReminderResponse(&reminders[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listRemindersResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if invoiceID := strings.TrimSpace(c.Query("invoiceId")); invoiceID != "" {
		params.InvoiceID = &invoiceID
	}

	return params, nil
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	if r == nil {
		return reminderResponse{}
	}

	return reminderResponse{
		ID:             r.ID,
		InvoiceID:      r.InvoiceID,
		RecipientEmail: r.RecipientEmail,
		Amount:         r.Amount,
		DueDate:        r.DueDate,
		SendDate:       r.SendDate,
		Status:         r.Status.String(),
		RetryCount:     r.RetryCount,
		NextRetryAt:    r.NextRetryAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
