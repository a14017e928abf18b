package provider

import "context"

// EmailSender is the outbound email delivery port.
type EmailSender interface {
	Send(ctx context.Context, email Email) (*SendResponse, error)
}

// Email is one outbound message. Attachments carry pre-rendered content;
// this service never generates documents itself.
type Email struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment is a file attached to an outbound email.
type Attachment struct {
	Filename string
	Content  []byte
}

// SendResponse stores provider call metadata for audit and persistence.
type SendResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
