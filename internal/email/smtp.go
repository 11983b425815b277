package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"pawtrait_backend/platform/config"

	qrcode "github.com/skip2/go-qrcode"
	gomail "github.com/wneessen/go-mail"
)

// qrCodeSize is the pixel edge of the artwork-page QR attachment.
const qrCodeSize = 256

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender returns the SMTP sender when delivery is configured and the
// noop sender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}

// NewSMTPSender creates an SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendMasterpieceCreatingEmail(ctx context.Context, toEmail, customerName, petName string) error {
	content, err := renderEmailTemplate("masterpiece_creating.html", masterpieceCreatingEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your masterpiece is being created",
			Heading: "The artists are at work",
		},
		CustomerName: customerName,
		PetName:      petName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectMasterpieceCreating, content)
}

func (s *SMTPSender) SendMasterpieceReadyEmail(ctx context.Context, toEmail, customerName, petName, artworkURL string) error {
	// The QR attachment points at the same artwork page as the CTA; a
	// failed render drops the attachment, never the email.
	var attachments []Attachment
	if png, err := qrcode.Encode(artworkURL, qrcode.Medium, qrCodeSize); err == nil {
		attachments = append(attachments, Attachment{
			Content:  png,
			FileName: "artwork-qr.png",
			MIMEType: "image/png",
		})
	}

	content, err := renderEmailTemplate("masterpiece_ready.html", masterpieceReadyEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your masterpiece is ready",
			Heading:  "The reveal is here",
			CTALabel: "View your masterpiece",
			CTAURL:   artworkURL,
		},
		CustomerName: customerName,
		PetName:      petName,
		HasQRCode:    len(attachments) > 0,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectMasterpieceReady, content, attachments...)
}

func (s *SMTPSender) SendOrderConfirmationEmail(ctx context.Context, toEmail, customerName, orderNumber, productDescription, estimatedDelivery string) error {
	content, err := renderEmailTemplate("order_confirmation.html", orderConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Order confirmed",
			Heading: "Thank you for your order",
		},
		CustomerName:       customerName,
		OrderNumber:        orderNumber,
		ProductDescription: productDescription,
		EstimatedDelivery:  estimatedDelivery,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectOrderConfirmation, content)
}

func (s *SMTPSender) SendOrderShippedEmail(ctx context.Context, toEmail, customerName, orderNumber, trackingURL string) error {
	content, err := renderEmailTemplate("order_shipped.html", orderShippedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your order has shipped",
			Heading:  "It's on the way",
			CTALabel: "Track your package",
			CTAURL:   trackingURL,
		},
		CustomerName: customerName,
		OrderNumber:  orderNumber,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectOrderShippedFmt, orderNumber), content)
}

func (s *SMTPSender) SendAdminReviewNotificationEmail(ctx context.Context, toEmail, reviewType, customerName, petName, reviewURL string) error {
	content, err := renderEmailTemplate("admin_review.html", adminReviewEmailData{
		baseEmailData: baseEmailData{
			Title:    "Review required",
			Heading:  "A review is waiting",
			CTALabel: "Open review",
			CTAURL:   reviewURL,
		},
		ReviewType:   reviewType,
		CustomerName: customerName,
		PetName:      petName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAdminReviewFmt, reviewType, customerName), content)
}

func (s *SMTPSender) SendUploadReminderEmail(ctx context.Context, toEmail, customerName, uploadURL string, reminderNumber int) error {
	content, err := renderEmailTemplate("upload_reminder.html", uploadReminderEmailData{
		baseEmailData: baseEmailData{
			Title:    "Complete your order",
			Heading:  "Your portrait is waiting for photos",
			CTALabel: "Upload photos",
			CTAURL:   uploadURL,
		},
		CustomerName:   customerName,
		ReminderNumber: reminderNumber,
		FinalNotice:    reminderNumber >= 3,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, uploadReminderSubject(reminderNumber), content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

var _ Sender = (*SMTPSender)(nil)
