package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/email"
	"pawtrait_backend/internal/notification/outbox"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	maxSendAttempts = 3
	retryBackoff    = 5 * time.Minute
	claimBatchSize  = 50
)

// SendEnqueuer hands claimed outbox rows to the task queue. Implemented by a
// scheduler adapter; without one DispatchDue processes rows inline.
type SendEnqueuer interface {
	EnqueueOutboxSend(ctx context.Context, outboxID uuid.UUID) error
}

// UploadStateReader reports whether an artwork is still waiting for its
// source photos. Reminders for resumed artworks are dropped, not sent.
type UploadStateReader interface {
	IsAwaitingUpload(ctx context.Context, artworkID uuid.UUID) (bool, error)
}

// Dispatcher drains the outbox: claims due rows, sends the emails, and keeps
// the status bookkeeping honest. Transient failures are retried with a delay;
// rows exhaust their attempts into failed.
type Dispatcher struct {
	repo     Outbox
	sender   email.Sender
	cat      *catalog.Catalog
	log      *logger.Logger
	enqueuer SendEnqueuer      // optional
	uploads  UploadStateReader // optional
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(repo Outbox, sender email.Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, log: log}
}

// SetSendEnqueuer injects the task-queue adapter.
func (d *Dispatcher) SetSendEnqueuer(enqueuer SendEnqueuer) { d.enqueuer = enqueuer }

// SetUploadStateReader injects the artwork upload-state check.
func (d *Dispatcher) SetUploadStateReader(reader UploadStateReader) { d.uploads = reader }

// DispatchDue claims due outbox rows and hands each to the queue (or sends
// inline when no queue is wired). Returns the number of rows claimed.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	records, err := d.repo.ClaimDue(ctx, claimBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming due notifications: %w", err)
	}

	for _, rec := range records {
		if d.enqueuer == nil {
			if err := d.Send(ctx, rec.ID); err != nil {
				d.log.Error("inline outbox send failed", "outbox_id", rec.ID, "error", err)
			}
			continue
		}
		if err := d.enqueuer.EnqueueOutboxSend(ctx, rec.ID); err != nil {
			d.log.Error("failed to enqueue outbox send", "outbox_id", rec.ID, "error", err)
			errStr := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, &errStr, time.Now().Add(retryBackoff)); markErr != nil {
				d.log.Error("failed to return outbox row to pending", "outbox_id", rec.ID, "error", markErr)
			}
		}
	}
	return len(records), nil
}

// Send delivers one outbox row. Safe to call more than once: terminal rows
// are acknowledged without resending.
func (d *Dispatcher) Send(ctx context.Context, outboxID uuid.UUID) error {
	rec, err := d.repo.GetByID(ctx, outboxID)
	if err != nil {
		return fmt.Errorf("loading outbox row %s: %w", outboxID, err)
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	var payload emailPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		markErr := d.repo.MarkFailed(ctx, rec.ID, "undecodable payload: "+err.Error())
		if markErr != nil {
			d.log.Error("failed to mark outbox row failed", "outbox_id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("decoding outbox payload %s: %w", rec.ID, err)
	}

	if err := d.repo.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("marking outbox row processing: %w", err)
	}
	attempts := rec.Attempts + 1

	sent, err := d.deliver(ctx, rec.Template, payload)
	if err != nil {
		d.log.Warn("notification delivery failed", "outbox_id", rec.ID, "template", rec.Template, "attempt", attempts, "error", err)
		errStr := err.Error()
		if attempts >= maxSendAttempts {
			if markErr := d.repo.MarkFailed(ctx, rec.ID, errStr); markErr != nil {
				d.log.Error("failed to mark outbox row failed", "outbox_id", rec.ID, "error", markErr)
			}
			return err
		}
		backoff := time.Duration(attempts) * retryBackoff
		if markErr := d.repo.MarkPending(ctx, rec.ID, &errStr, time.Now().Add(backoff)); markErr != nil {
			d.log.Error("failed to reschedule outbox row", "outbox_id", rec.ID, "error", markErr)
		}
		return err
	}

	if err := d.repo.MarkSucceeded(ctx, rec.ID); err != nil {
		d.log.Error("failed to mark outbox row succeeded", "outbox_id", rec.ID, "error", err)
	}

	if sent && rec.Template == TemplateUploadReminder {
		d.chainUploadReminder(ctx, payload)
	}
	return nil
}

// deliver renders and sends one template. The skipped return distinguishes a
// deliberately dropped notification from a sent one.
func (d *Dispatcher) deliver(ctx context.Context, template string, p emailPayload) (bool, error) {
	switch template {
	case TemplateMasterpieceCreating:
		return true, d.sender.SendMasterpieceCreatingEmail(ctx, p.To, p.CustomerName, p.PetName)
	case TemplateMasterpieceReady:
		return true, d.sender.SendMasterpieceReadyEmail(ctx, p.To, p.CustomerName, p.PetName, p.ArtworkURL)
	case TemplateOrderConfirmation:
		return true, d.sender.SendOrderConfirmationEmail(ctx, p.To, p.CustomerName, p.OrderNumber, p.ProductDescription, p.EstimatedDelivery)
	case TemplateOrderShipped:
		return true, d.sender.SendOrderShippedEmail(ctx, p.To, p.CustomerName, p.OrderNumber, p.TrackingURL)
	case TemplateAdminReview:
		return true, d.sender.SendAdminReviewNotificationEmail(ctx, p.To, p.ReviewType, p.CustomerName, p.PetName, p.ReviewURL)
	case TemplateUploadReminder:
		if d.uploads != nil && p.ArtworkID != uuid.Nil {
			awaiting, err := d.uploads.IsAwaitingUpload(ctx, p.ArtworkID)
			if err == nil && !awaiting {
				d.log.Debug("upload reminder dropped, photos already provided", "artwork_id", p.ArtworkID)
				return false, nil
			}
		}
		return true, d.sender.SendUploadReminderEmail(ctx, p.To, p.CustomerName, p.UploadURL, p.ReminderNumber)
	default:
		return false, fmt.Errorf("unknown notification template %q", template)
	}
}

func (d *Dispatcher) chainUploadReminder(ctx context.Context, p emailPayload) {
	if p.ReminderNumber >= maxUploadReminders {
		return
	}
	next := p
	next.ReminderNumber++
	_, err := d.repo.Insert(ctx, outbox.InsertParams{
		Kind:     kindEmail,
		Template: TemplateUploadReminder,
		Payload:  next,
		RunAt:    time.Now().Add(nextReminderDelay),
	})
	if err != nil {
		d.log.Error("failed to schedule next upload reminder", "artwork_id", p.ArtworkID, "error", err)
	}
}

func (d *Dispatcher) estimatedDelivery(productType string, from time.Time) string {
	if productType == "digital" {
		return "Available immediately"
	}
	if d.cat == nil {
		return ""
	}
	return d.cat.EstimatedDelivery(catalog.ProductType(productType), from).Format("Monday, January 2, 2006")
}
