package email

import (
	"context"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string // e.g. "artwork-qr.png"
	MIMEType string // e.g. "image/png"
}

type Sender interface {
	SendMasterpieceCreatingEmail(ctx context.Context, toEmail, customerName, petName string) error
	SendMasterpieceReadyEmail(ctx context.Context, toEmail, customerName, petName, artworkURL string) error
	SendOrderConfirmationEmail(ctx context.Context, toEmail, customerName, orderNumber, productDescription, estimatedDelivery string) error
	SendOrderShippedEmail(ctx context.Context, toEmail, customerName, orderNumber, trackingURL string) error
	SendAdminReviewNotificationEmail(ctx context.Context, toEmail, reviewType, customerName, petName, reviewURL string) error
	SendUploadReminderEmail(ctx context.Context, toEmail, customerName, uploadURL string, reminderNumber int) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendMasterpieceCreatingEmail(ctx context.Context, toEmail, customerName, petName string) error {
	return nil
}

func (NoopSender) SendMasterpieceReadyEmail(ctx context.Context, toEmail, customerName, petName, artworkURL string) error {
	return nil
}

func (NoopSender) SendOrderConfirmationEmail(ctx context.Context, toEmail, customerName, orderNumber, productDescription, estimatedDelivery string) error {
	return nil
}

func (NoopSender) SendOrderShippedEmail(ctx context.Context, toEmail, customerName, orderNumber, trackingURL string) error {
	return nil
}

func (NoopSender) SendAdminReviewNotificationEmail(ctx context.Context, toEmail, reviewType, customerName, petName, reviewURL string) error {
	return nil
}

func (NoopSender) SendUploadReminderEmail(ctx context.Context, toEmail, customerName, uploadURL string, reminderNumber int) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

var _ Sender = NoopSender{}
