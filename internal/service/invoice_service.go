package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/provider"
	"github.com/olonts/salein-reminders/internal/ratelimit"
	"github.com/olonts/salein-reminders/internal/repository"
	"go.uber.org/zap"
)

const defaultInvoiceSendTimeout = 15 * time.Second

// SendInvoiceInput carries an already-rendered invoice email. The PDF is
// produced by the caller and arrives base64-encoded.
type SendInvoiceInput struct {
	InvoiceID      string
	RecipientEmail string
	TeamEmails     []string
	Amount         float64
	InvoiceDate    time.Time
	DueDate        time.Time
	Subject        string
	HTMLBody       string
	PDFFilename    string
	PDFBase64      string
	ReminderPolicy domain.ReminderPolicy
}

// SendInvoiceResult reports the outcome of an invoice send. ReminderWarning
// is set when the email went out but reminder scheduling failed; that
// failure never fails the send.
type SendInvoiceResult struct {
	Invoice            domain.Invoice
	MessageID          string
	RemindersScheduled int
	ReminderWarning    string
}

// InvoiceService owns the invoice-send flow: deliver the invoice email,
// persist the invoice record, then hand the reminder policy to the
// scheduler.
type InvoiceService struct {
	invoices    repository.InvoiceRepository
	scheduler   *Scheduler
	sender      provider.EmailSender
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger

	emailFrom   string
	sendTimeout time.Duration
	now         func() time.Time
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	scheduler *Scheduler,
	sender provider.EmailSender,
	rateLimiter ratelimit.RateLimiter,
	emailFrom string,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*InvoiceService, error) {
	if invoices == nil {
		return nil, fmt.Errorf("invoice repository is required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
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

	return &InvoiceService{
		invoices:    invoices,
		scheduler:   scheduler,
		sender:      sender,
		rateLimiter: rateLimiter,
		logger:      logger,
		emailFrom:   emailFrom,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}, nil
}

// SendInvoice delivers the invoice email, persists the invoice as pending,
// and schedules reminders per the policy. Scheduling failures are reported
// in the result, not as an error.
func (s *InvoiceService) SendInvoice(ctx context.Context, input SendInvoiceInput) (*SendInvoiceResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	invoice := domain.Invoice{
		ID:              strings.TrimSpace(input.InvoiceID),
		RecipientEmail:  strings.TrimSpace(input.RecipientEmail),
		TeamEmails:      input.TeamEmails,
		Amount:          input.Amount,
		Status:          domain.InvoiceStatusPending,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         input.DueDate,
		ReminderEnabled: input.ReminderPolicy.Enabled,
		ReminderPolicy:  input.ReminderPolicy,
	}
	if invoice.ID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	email, err := s.buildInvoiceEmail(invoice, input)
	if err != nil {
		return nil, err
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, emailRateBucket); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	resp, err := s.sender.Send(sendCtx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	if err := s.invoices.Create(ctx, &invoice); err != nil {
		// The email is already out; surface the persistence failure so the
		// caller knows the record is missing.
		return nil, fmt.Errorf("invoice email sent but record not persisted: %w", err)
	}

	result := &SendInvoiceResult{Invoice: invoice}
	if resp != nil {
		result.MessageID = resp.MessageID
	}

	created, schedErr := s.scheduler.Schedule(ctx, ScheduleRequest{
		InvoiceID:      invoice.ID,
		RecipientEmail: invoice.RecipientEmail,
		DueDate:        invoice.DueDate,
		Amount:         invoice.Amount,
		Policy:         invoice.ReminderPolicy,
	})
	if schedErr != nil {
		result.ReminderWarning = fmt.Sprintf("invoice sent but reminders could not be scheduled: %v", schedErr)
		s.logger.Warn("reminder scheduling failed after invoice send",
			zap.String("invoiceId", invoice.ID),
			zap.Error(schedErr),
		)
		return result, nil
	}
	result.RemindersScheduled = len(created)

	s.logger.Info("invoice sent",
		zap.String("invoiceId", invoice.ID),
		zap.String("recipient", invoice.RecipientEmail),
		zap.Int("remindersScheduled", result.RemindersScheduled),
	)

	return result, nil
}

func (s *InvoiceService) buildInvoiceEmail(invoice domain.Invoice, input SendInvoiceInput) (provider.Email, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Invoice #%s from Salein", invoice.ID)
	}

	htmlBody := input.HTMLBody
	if strings.TrimSpace(htmlBody) == "" {
		return provider.Email{}, fmt.Errorf("%w: email body is required", domain.ErrValidation)
	}

	email := provider.Email{
		From:     s.emailFrom,
		To:       []string{invoice.RecipientEmail},
		Cc:       invoice.TeamEmails,
		Subject:  subject,
		HTMLBody: htmlBody,
	}

	if input.PDFBase64 != "" {
		content, err := base64.StdEncoding.DecodeString(input.PDFBase64)
		if err != nil {
			return provider.Email{}, fmt.Errorf("%w: invalid pdf attachment encoding", domain.ErrValidation)
		}
		filename := strings.TrimSpace(input.PDFFilename)
		if filename == "" {
			filename = fmt.Sprintf("invoice-%s.pdf", invoice.ID)
		}
		email.Attachments = []provider.Attachment{{Filename: filename, Content: content}}
	}

	return email, nil
}

// UpdateStatus moves an invoice between payment states.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid invoice status %q", domain.ErrValidation, status)
	}
	return s.invoices.UpdateStatus(ctx, id, status)
}

func (s *InvoiceService) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	return s.invoices.GetByID(ctx, id)
}
