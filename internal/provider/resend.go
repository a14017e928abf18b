package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultResendBaseURL = "https://api.resend.com"
	defaultSendTimeout   = 15 * time.Second
)

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Cc          []string           `json:"cc,omitempty"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// ResendSender delivers email through the Resend transactional API.
type ResendSender struct {
	client *resty.Client
	apiKey string
}

func NewResendSender(apiKey string, timeout time.Duration) (*ResendSender, error) {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	client := resty.New()
	client.SetBaseURL(defaultResendBaseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewResendSenderWithClient(apiKey, client)
}

func NewResendSenderWithClient(apiKey string, client *resty.Client) (*ResendSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &ResendSender{
		client: client,
		apiKey: strings.TrimSpace(apiKey),
	}, nil
}

func (s *ResendSender) Send(ctx context.Context, email Email) (*SendResponse, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	reqBody := resendRequest{
		From:    email.From,
		To:      email.To,
		Cc:      email.Cc,
		Subject: email.Subject,
		HTML:    email.HTMLBody,
	}
	for _, a := range email.Attachments {
		reqBody.Attachments = append(reqBody.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+s.apiKey).
		SetBody(reqBody).
		Post("/emails")
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  parseMessageID(responseBody),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func validateEmail(email Email) error {
	if strings.TrimSpace(email.From) == "" {
		return fmt.Errorf("email from address is required")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email recipient is required")
	}
	if strings.TrimSpace(email.Subject) == "" {
		return fmt.Errorf("email subject is required")
	}
	return nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func parseMessageID(body string) string {
	if body == "" {
		return ""
	}

	var parsed resendResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.ID)
}
