package service

import (
	"fmt"
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/provider"
)

func reminderSubject(invoiceID string) string {
	return fmt.Sprintf("Payment Reminder for Invoice #%s", invoiceID)
}

func reminderEmail(from string, r domain.Reminder) provider.Email {
	return provider.Email{
		From:     from,
		To:       []string{r.RecipientEmail},
		Subject:  reminderSubject(r.InvoiceID),
		HTMLBody: reminderEmailHTML(r.InvoiceID, r.Amount, r.DueDate),
	}
}

func reminderEmailHTML(invoiceID string, amount float64, dueDate time.Time) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Payment Reminder</h2>
  <p>This is a friendly reminder about your upcoming payment.</p>
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin: 20px 0;">
    <p><strong>Invoice ID:</strong> %s</p>
    <p><strong>Amount Due:</strong> %.2f</p>
    <p><strong>Due Date:</strong> %s</p>
  </div>
  <p>Please ensure your payment is made before the due date to avoid any late fees.</p>
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee;">
    <p style="color: #666; font-size: 14px;">If you've already made the payment, please disregard this reminder.</p>
  </div>
</div>`, invoiceID, amount, dueDate.Format("January 2, 2006"))
}
